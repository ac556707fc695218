package handler

import (
	"mime"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"rtodocs/internal/http/middleware"
	"rtodocs/internal/model"
	"rtodocs/internal/service"
)

type documentData struct {
	Document *model.Document `json:"document"`
}

type documentsData struct {
	Documents []model.Document `json:"documents"`
}

type verifyRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason"`
}

func callerOrAbort(c *fiber.Ctx) (model.Caller, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return model.Caller{}, fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}
	return caller, nil
}

func documentID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// UploadDocument handles multipart uploads with fields file, entity_type, entity_id and document_type.
//
//	@Summary	Upload a document
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file			formData	file	true	"jpg, png or pdf"
//	@Param		entity_type		formData	string	true	"VEHICLE, DL_APPLICATION or USER"
//	@Param		entity_id		formData	string	true	"entity UUID"
//	@Param		document_type	formData	string	true	"AADHAAR, PAN, ADDRESS_PROOF, PHOTO, SIGNATURE, INSURANCE or OTHER"
//	@Success	201				{object}	envelope
//	@Failure	400,401,403,404	{object}	envelope
//	@Security	BearerAuth
//	@Router		/documents/upload [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOrAbort(c)
		if err != nil {
			return err
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := docSvc.Upload(c.UserContext(), caller, service.UploadInput{
			EntityType:   model.EntityType(c.FormValue("entity_type")),
			EntityID:     c.FormValue("entity_id"),
			DocumentType: model.DocumentType(c.FormValue("document_type")),
			FileName:     fh.Filename,
			Size:         fh.Size,
			Content:      f,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeOK(c, fiber.StatusCreated, "Document uploaded successfully", documentData{Document: doc})
	}
}

// MyDocuments lists the caller's own uploads, newest first.
//
//	@Summary	List my documents
//	@Tags		documents
//	@Produce	json
//	@Success	200	{object}	envelope
//	@Security	BearerAuth
//	@Router		/documents/my [get]
func MyDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOrAbort(c)
		if err != nil {
			return err
		}
		docs, err := docSvc.ListByUser(c.UserContext(), caller, caller.UserID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeOK(c, fiber.StatusOK, "", documentsData{Documents: docs})
	}
}

// EntityDocuments lists the documents attached to an entity.
//
//	@Summary	List documents for an entity
//	@Tags		documents
//	@Produce	json
//	@Param		entityId	path		string	true	"entity UUID"
//	@Success	200			{object}	envelope
//	@Security	BearerAuth
//	@Router		/documents/entity/{entityId} [get]
func EntityDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOrAbort(c)
		if err != nil {
			return err
		}
		entityID := c.Params("entityId")
		if _, err := uuid.Parse(entityID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid entity id format")
		}
		docs, err := docSvc.ListByEntity(c.UserContext(), caller, entityID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeOK(c, fiber.StatusOK, "", documentsData{Documents: docs})
	}
}

// VerifyDocument records an officer's decision.
//
//	@Summary	Verify or reject a document
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"document UUID"
//	@Param		body	body		verifyRequest	true	"decision"
//	@Success	200		{object}	envelope
//	@Failure	400,403,404,409	{object}	envelope
//	@Security	BearerAuth
//	@Router		/documents/{id}/verify [put]
func VerifyDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOrAbort(c)
		if err != nil {
			return err
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req verifyRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := docSvc.Verify(c.UserContext(), caller, id, service.VerifyInput{
			Status: model.Status(req.Status),
			Reason: req.RejectionReason,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return writeOK(c, fiber.StatusOK, "Document "+string(doc.Status)+" successfully", documentData{Document: doc})
	}
}

// DownloadDocument streams the stored file.
//
//	@Summary	Download a document
//	@Tags		documents
//	@Produce	octet-stream
//	@Param		id	path	string	true	"document UUID"
//	@Success	200
//	@Failure	403,404,502	{object}	envelope
//	@Security	BearerAuth
//	@Router		/documents/{id}/download [get]
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOrAbort(c)
		if err != nil {
			return err
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		res, err := docSvc.Download(c.UserContext(), caller, id)
		if err != nil {
			return writeServiceError(c, err)
		}

		contentType := res.MimeType
		if contentType == "" {
			contentType = fiber.MIMEOctetStream
		}
		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{"filename": res.FileName}))
		// fasthttp closes the stream once the body is written.
		return c.SendStream(res.Content, int(res.Size))
	}
}

// DeleteDocument removes one of the caller's own documents.
//
//	@Summary	Delete a document
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"document UUID"
//	@Success	200	{object}	envelope
//	@Failure	403,404	{object}	envelope
//	@Security	BearerAuth
//	@Router		/documents/{id} [delete]
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := callerOrAbort(c)
		if err != nil {
			return err
		}
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), caller, id); err != nil {
			return writeServiceError(c, err)
		}
		return writeOK(c, fiber.StatusOK, "Document deleted successfully", nil)
	}
}
