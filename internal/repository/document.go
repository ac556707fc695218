package repository

import (
	"context"

	"rtodocs/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// Persistence only; no business rules.
// Missing rows are reported as sql.ErrNoRows and mapped by the service layer.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// ListByEntity returns every document linked to entityID, oldest first.
	ListByEntity(ctx context.Context, entityID string) ([]model.Document, error)

	// ListUserDocuments returns the USER-level documents of userID restricted to the given types, oldest first.
	ListUserDocuments(ctx context.Context, userID string, types []model.DocumentType) ([]model.Document, error)

	// ListByUser returns every document uploaded by userID, newest first.
	ListByUser(ctx context.Context, userID string) ([]model.Document, error)

	// MarkDecision records a verification decision only if the document is still PENDING.
	// It returns sql.ErrNoRows when no PENDING row matched.
	MarkDecision(ctx context.Context, id string, d model.Decision) (*model.Document, error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// EntityRepository resolves the owner of the domain objects documents attach to.
type EntityRepository interface {
	// OwnerOf returns the user that owns the entity, or sql.ErrNoRows if it does not exist.
	OwnerOf(ctx context.Context, entityType model.EntityType, entityID string) (string, error)
}

// NotificationRepository writes user-facing notifications.
type NotificationRepository interface {
	Create(ctx context.Context, userID, message string) error
}
