package handler

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"llouest/internal/apperror"
	"llouest/internal/http/middleware"
	"llouest/internal/service"
)

var errFileOpen = apperror.BadRequest("FILE_OPEN_ERROR", "cannot open uploaded file")

// CreateReview accepts JSON or multipart/form-data with up to five "images" parts.
//
// @Summary Review a service
// @Tags reviews
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param service_id formData string true "service"
// @Param rating formData int true "1 to 5"
// @Param comment formData string false "comment"
// @Param images formData file false "photos"
// @Success 201 {object} model.Review
// @Failure 409 {object} errorPayload "already reviewed"
// @Router /api/v1/reviews [post]
func CreateReview(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CreateReviewInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}

		var uploads []service.Upload
		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			form, err := c.MultipartForm()
			if err != nil {
				return errInvalidBody
			}
			files, err := openAll(form.File["images"])
			defer closeAll(files)
			if err != nil {
				return err
			}
			uploads = make([]service.Upload, len(files))
			for i, f := range files {
				uploads[i] = f.upload
			}
		}

		r, err := svc.Create(c.UserContext(), middleware.ActorFrom(c), in, uploads)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// ListServiceReviews returns a page of reviews with the rating summary.
func ListServiceReviews(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.ListByService(c.UserContext(), c.Params("serviceID"), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func ListMyReviews(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, offset, err := pagination(c)
		if err != nil {
			return err
		}
		res, err := svc.ListMine(c.UserContext(), middleware.ActorFrom(c), limit, offset)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func GetReview(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		r, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

func UpdateReview(svc service.ReviewService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var in service.UpdateReviewInput
		if err := bindJSON(c, &in); err != nil {
			return err
		}
		r, err := svc.Update(c.UserContext(), middleware.ActorFrom(c), id, in)
		if err != nil {
			return err
		}
		return c.JSON(r)
	}
}

func DeleteReview(svc service.ReviewService) fiber.Handler {
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

type openedFile struct {
	file   multipart.File
	upload service.Upload
}

// openAll opens every part; whatever was opened is returned even on error so
// the caller can close it.
func openAll(headers []*multipart.FileHeader) ([]openedFile, error) {
	out := make([]openedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return out, errFileOpen
		}
		out = append(out, openedFile{file: f, upload: uploadFrom(fh, f)})
	}
	return out, nil
}

func closeAll(files []openedFile) {
	for _, f := range files {
		f.file.Close()
	}
}

func uploadFrom(fh *multipart.FileHeader, f multipart.File) service.Upload {
	ct := fh.Header.Get(fiber.HeaderContentType)
	if ct == "" {
		ct = "application/octet-stream"
	}
	return service.Upload{Reader: f, Filename: fh.Filename, ContentType: ct, Size: fh.Size}
}
