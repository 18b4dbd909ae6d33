package handlers

import (
	"errors"
	"net/http"

	"conference_backend/internal/logger"
	"conference_backend/internal/middleware"
	"conference_backend/internal/models"
	"conference_backend/internal/services"
	"conference_backend/internal/services/dto"
	"conference_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

const (
	abstractField    = "abstract"
	msgPaperAccepted = "Paper submitted successfully"
)

// поля, которые попадают в колонки, а не в details
var submissionColumns = map[string]bool{
	"paperTitle":   true,
	"authorName":   true,
	"email":        true,
	"confirmEmail": true,
	"category":     true,
	"topic":        true,
}

type SubmissionHandler struct {
	*BaseHandler
	submissionService services.SubmissionService
}

func NewSubmissionHandler(base *BaseHandler, submissionService services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:       base,
		submissionService: submissionService,
	}
}

// SubmitPaper godoc
// @Summary Подача доклада
// @Description multipart-форма; файл тезисов в поле abstract (необязательно)
// @Tags submissions
// @Accept multipart/form-data
// @Produce json
// @Param paperTitle formData string true "Название"
// @Param authorName formData string true "Автор"
// @Param email formData string true "Email"
// @Param category formData string true "Категория"
// @Param abstract formData file false "Файл тезисов"
// @Success 201 {object} dto.SubmissionResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 413 {object} apperrors.ErrorResponse
// @Router /submit-paper [post]
func (h *SubmissionHandler) SubmitPaper(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmissionRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	if extra := extraFormFields(c); len(extra) > 0 {
		req.Details = extra
	}
	req.AccountID = middleware.GetUserID(c)

	var file *dto.AbstractFile
	header, err := c.FormFile(abstractField)
	switch {
	case err == nil:
		f, openErr := header.Open()
		if openErr != nil {
			logger.CtxWithError(ctx, "failed to open uploaded abstract", openErr)
			h.HandleServiceError(c, apperrors.NewBadRequestError("Could not read uploaded file"))
			return
		}
		defer f.Close()

		file = &dto.AbstractFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Reader:      f,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// без файла
	default:
		h.HandleServiceError(c, apperrors.NewBadRequestError("Invalid multipart form"))
		return
	}

	submission, err := h.submissionService.Create(ctx, h.GetDB(c), &req, file)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.SubmissionResponse{
		Success:      true,
		Message:      msgPaperAccepted,
		SubmissionID: submission.SubmissionID,
		PaperDetails: submission,
	})
}

// UserSubmission godoc
// @Summary Последняя заявка текущего пользователя
// @Tags submissions
// @Produce json
// @Security SessionToken
// @Success 200 {object} dto.UserSubmissionResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Router /user-submission [get]
func (h *SubmissionHandler) UserSubmission(c *gin.Context) {
	claims, ok := h.GetSession(c)
	if !ok {
		return
	}

	submission, err := h.submissionService.LatestForEmail(c.Request.Context(), h.GetDB(c), claims.Email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserSubmissionResponse{
		Success:       true,
		HasSubmission: submission != nil,
		Submission:    submission,
	})
}

// UserSubmissions godoc
// @Summary Все заявки текущего пользователя
// @Tags submissions
// @Produce json
// @Security SessionToken
// @Success 200 {object} dto.UserSubmissionsResponse
// @Failure 401 {object} apperrors.ErrorResponse
// @Router /user-submissions [get]
func (h *SubmissionHandler) UserSubmissions(c *gin.Context) {
	claims, ok := h.GetSession(c)
	if !ok {
		return
	}

	submissions, err := h.submissionService.ListForEmail(c.Request.Context(), h.GetDB(c), claims.Email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if submissions == nil {
		submissions = []models.Submission{}
	}

	c.JSON(http.StatusOK, dto.UserSubmissionsResponse{
		Success:     true,
		Count:       len(submissions),
		Submissions: submissions,
	})
}

// extraFormFields собирает поля формы, у которых нет своей колонки
func extraFormFields(c *gin.Context) map[string]string {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	if c.Request.PostForm == nil {
		return nil
	}

	details := make(map[string]string)
	for key, values := range c.Request.PostForm {
		if submissionColumns[key] || len(values) == 0 {
			continue
		}
		details[key] = values[0]
	}
	return details
}
