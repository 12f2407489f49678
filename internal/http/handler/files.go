package handler

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"llouest/internal/apperror"
	"llouest/internal/http/middleware"
	"llouest/internal/service"
)

var errFileRequired = apperror.BadRequest("FILE_REQUIRED", "file is required")

// UploadFile godoc
// @Summary Upload a file (multipart/form-data, field name: file)
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "file"
// @Success 201 {object} model.File
// @Failure 400 {object} errorPayload
// @Router /api/v1/files [post]
func UploadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return errFileRequired
		}

		f, err := fh.Open()
		if err != nil {
			return errFileOpen
		}
		defer f.Close()

		file, err := svc.Upload(c.UserContext(), middleware.ActorFrom(c), uploadFrom(fh, f))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(file)
	}
}

// ListFiles godoc
// @Summary List the caller's files (every file for admins)
// @Tags files
// @Produce json
// @Security BearerAuth
// @Param limit query int false "page size" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.ListResult[model.File]
// @Router /api/v1/files [get]
func ListFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.List(c.UserContext(), middleware.ActorFrom(c), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// GetFile returns metadata with a presigned download URL.
func GetFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		f, err := svc.Get(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return err
		}
		return c.JSON(f)
	}
}

// DownloadFile streams the object through the API.
func DownloadFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		rc, f, err := svc.Download(c.UserContext(), middleware.ActorFrom(c), id)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, f.ContentType)
		c.Set(fiber.HeaderContentDisposition, attachment(f.Filename))
		size := -1
		if f.Size > 0 {
			size = int(f.Size)
		}
		// fasthttp closes rc once the body is written.
		return c.SendStream(rc, size)
	}
}

func DeleteFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), middleware.ActorFrom(c), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// attachment builds a Content-Disposition value safe for non-ASCII names.
func attachment(filename string) string {
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, asciiName(filename), url.PathEscape(filename))
}

func asciiName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}
