package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-market-api/internal/service"
	appErrors "github.com/noah-isme/course-market-api/pkg/errors"
	"github.com/noah-isme/course-market-api/pkg/response"
)

const proofFormField = "file"

// ProofHandler accepts payment screenshots and serves them to reviewers.
type ProofHandler struct {
	proofs *service.ProofService
}

// NewProofHandler constructs the handler.
func NewProofHandler(proofs *service.ProofService) *ProofHandler {
	return &ProofHandler{proofs: proofs}
}

// Upload godoc
// @Summary Upload a payment proof image
// @Description Returns an opaque paymentProofUrl to attach to a purchase.
// @Tags Purchases
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PNG, JPEG or WebP screenshot"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /purchases/proofs [post]
func (h *ProofHandler) Upload(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		return
	}
	header, err := c.FormFile(proofFormField)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "multipart field \"file\" is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	uploaded, err := h.proofs.Upload(c.Request.Context(), claims.UserID, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, uploaded)
}

// View godoc
// @Summary View a payment proof
// @Tags Admin Purchases
// @Produce image/png
// @Produce image/jpeg
// @Param token path string true "Proof token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/proofs/{token} [get]
func (h *ProofHandler) View(c *gin.Context) {
	file, mime, err := h.proofs.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	response.Private(c, mime, file)
}
