package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"rtodocs/internal/cache"
	"rtodocs/internal/model"
	"rtodocs/internal/repository"
	"rtodocs/internal/storage"
)

const (
	pkg = "documentService/"

	defaultMaxUploadBytes = 5 << 20
	defaultListCacheTTL   = 5 * time.Minute
	// sniffLen matches the amount of content mimetype inspects by default.
	sniffLen = 3072
)

var (
	defaultAllowedMIMETypes = []string{"image/jpeg", "image/png", "application/pdf"}
	defaultFallbackTypes    = []model.DocumentType{model.DocAadhaar, model.DocPhoto, model.DocAddressProof}
)

// UploadInput carries one uploaded file and the entity it attaches to.
type UploadInput struct {
	EntityType   model.EntityType
	EntityID     string
	DocumentType model.DocumentType
	FileName     string
	Size         int64
	Content      io.Reader
}

// VerifyInput is an officer's decision on a PENDING document.
type VerifyInput struct {
	Status model.Status
	Reason string
}

// DownloadResult streams a stored file. The caller must close Content.
type DownloadResult struct {
	Content  io.ReadCloser
	FileName string
	MimeType string
	Size     int64
}

// DocumentService is the document registry: it owns document metadata,
// the PENDING -> VERIFIED|REJECTED state machine, and access checks.
type DocumentService interface {
	// Upload stores the file, then inserts a PENDING document row. A failed insert removes the stored file.
	Upload(ctx context.Context, caller model.Caller, in UploadInput) (*model.Document, error)

	// ListByEntity returns the entity's documents oldest first. When a DL application has none,
	// the applicant's profile-level identity documents are returned instead.
	ListByEntity(ctx context.Context, caller model.Caller, entityID string) ([]model.Document, error)

	// ListByUser returns every document uploaded by userID, newest first.
	ListByUser(ctx context.Context, caller model.Caller, userID string) ([]model.Document, error)

	// Verify records the single permitted decision on a PENDING document.
	Verify(ctx context.Context, caller model.Caller, id string, in VerifyInput) (*model.Document, error)

	// Download opens the stored file of a document the caller may read.
	Download(ctx context.Context, caller model.Caller, id string) (*DownloadResult, error)

	// Delete removes the document row and then, best effort, its stored file.
	Delete(ctx context.Context, caller model.Caller, id string) error
}

// Options tunes limits and wires the optional collaborators of the registry.
type Options struct {
	MaxUploadBytes   int64
	AllowedMIMETypes []string
	FallbackTypes    []model.DocumentType
	ListCacheTTL     time.Duration

	Notifier repository.NotificationRepository
	Cache    cache.Cache
	Metrics  *Metrics
	Logger   *slog.Logger
}

type documentService struct {
	store    storage.Storage
	repo     repository.DocumentRepository
	entities repository.EntityRepository
	opts     Options
	log      *slog.Logger
	now      func() time.Time

	// loads collapses concurrent ListByUser misses for the same user into one query.
	loads singleflight.Group
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, entities repository.EntityRepository, opts Options) DocumentService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if len(opts.AllowedMIMETypes) == 0 {
		opts.AllowedMIMETypes = defaultAllowedMIMETypes
	}
	if opts.FallbackTypes == nil {
		opts.FallbackTypes = defaultFallbackTypes
	}
	if opts.ListCacheTTL <= 0 {
		opts.ListCacheTTL = defaultListCacheTTL
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &documentService{
		store:    store,
		repo:     repo,
		entities: entities,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

func (s *documentService) Upload(ctx context.Context, caller model.Caller, in UploadInput) (*model.Document, error) {
	op := pkg + "Upload"
	log := s.log.With(slog.String("op", op), slog.String("user_id", caller.UserID))

	if caller.UserID == "" {
		return nil, forbiddenError("caller is not authenticated")
	}
	if err := s.validateUpload(in); err != nil {
		return nil, err
	}

	content, mimeType, err := s.detectMIME(in.Content)
	if err != nil {
		return nil, err
	}

	owner, err := s.entities.OwnerOf(ctx, in.EntityType, in.EntityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %w", strings.ToLower(string(in.EntityType)), ErrNotFound)
		}
		return nil, fmt.Errorf("resolve entity: %w", err)
	}
	if !caller.Owns(owner) && !caller.IsStaff() {
		log.Warn("upload to foreign entity refused", slog.String("entity_id", in.EntityID))
		return nil, forbiddenError("you cannot attach documents to this entity")
	}

	key := storage.NewKey("documents/"+strings.ToLower(string(in.EntityType)), in.FileName)
	info, err := s.store.Put(ctx, key, io.LimitReader(content, in.Size), storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: mimeType,
		Metadata: map[string]string{
			"original-filename": in.FileName,
			"uploaded-by":       caller.UserID,
		},
	})
	if err != nil {
		log.Error("failed to store file", slog.String("key", key), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	size := info.Size
	if size <= 0 {
		size = in.Size
	}
	now := s.now().UTC()
	doc := &model.Document{
		ID:           uuid.NewString(),
		UserID:       caller.UserID,
		EntityType:   in.EntityType,
		EntityID:     in.EntityID,
		DocumentType: in.DocumentType,
		FilePath:     key,
		FileName:     in.FileName,
		MimeType:     mimeType,
		Size:         size,
		Status:       model.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		log.Error("failed to save document metadata", slog.String("error", err.Error()))
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			log.Error("failed to remove stored file after insert failure",
				slog.String("key", key), slog.String("error", delErr.Error()))
		}
		return nil, fmt.Errorf("save document metadata: %w", err)
	}

	s.invalidateUserList(ctx, caller.UserID)
	s.opts.Metrics.uploaded(stored.DocumentType)
	log.Info("document uploaded", slog.String("doc_id", stored.ID), slog.String("document_type", string(stored.DocumentType)))

	return stored, nil
}

func (s *documentService) validateUpload(in UploadInput) error {
	switch {
	case !in.EntityType.Valid():
		return validationError("entity_type must be one of VEHICLE, DL_APPLICATION, USER")
	case in.EntityID == "":
		return validationError("entity_id is required")
	case uuid.Validate(in.EntityID) != nil:
		return validationError("entity_id must be a UUID")
	case !in.DocumentType.Valid():
		return validationError("document_type %q is not supported", in.DocumentType)
	case in.Content == nil:
		return validationError("file is required")
	case in.Size <= 0:
		return validationError("file is empty")
	case in.Size > s.opts.MaxUploadBytes:
		return validationError("file exceeds the %d byte limit", s.opts.MaxUploadBytes)
	}
	return nil
}

// detectMIME sniffs the leading bytes of r and returns a reader replaying the full content.
func (s *documentService) detectMIME(r io.Reader) (io.Reader, string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	for _, allowed := range s.opts.AllowedMIMETypes {
		if detected.Is(allowed) {
			base, _, _ := strings.Cut(detected.String(), ";")
			return io.MultiReader(bytes.NewReader(head), r), strings.TrimSpace(base), nil
		}
	}
	return nil, "", validationError("file type %s is not allowed", detected.String())
}

func (s *documentService) ListByEntity(ctx context.Context, caller model.Caller, entityID string) ([]model.Document, error) {
	if entityID == "" {
		return nil, validationError("entity_id is required")
	}

	docs, err := s.repo.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("list entity documents: %w", err)
	}
	if len(docs) == 0 {
		docs, err = s.reviewFallback(ctx, entityID)
		if err != nil {
			return nil, err
		}
	}
	return s.visibleTo(ctx, caller, docs), nil
}

// reviewFallback serves DL application review: an application with no documents of its own
// borrows the applicant's profile-level documents of the configured types.
func (s *documentService) reviewFallback(ctx context.Context, entityID string) ([]model.Document, error) {
	empty := []model.Document{}
	if len(s.opts.FallbackTypes) == 0 {
		return empty, nil
	}

	applicant, err := s.entities.OwnerOf(ctx, model.EntityDLApplication, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return empty, nil
		}
		return nil, fmt.Errorf("resolve dl application: %w", err)
	}

	docs, err := s.repo.ListUserDocuments(ctx, applicant, s.opts.FallbackTypes)
	if err != nil {
		return nil, fmt.Errorf("list applicant documents: %w", err)
	}
	if docs == nil {
		return empty, nil
	}
	return docs, nil
}

// visibleTo keeps the documents caller may read under the same rule as Download.
// Each linked entity's owner is resolved at most once.
func (s *documentService) visibleTo(ctx context.Context, caller model.Caller, docs []model.Document) []model.Document {
	if caller.IsStaff() {
		return docs
	}
	out := make([]model.Document, 0, len(docs))
	if caller.UserID == "" {
		return out
	}
	type entityRef struct {
		kind model.EntityType
		id   string
	}
	owners := make(map[entityRef]string)
	for i := range docs {
		d := &docs[i]
		if caller.Owns(d.UserID) {
			out = append(out, *d)
			continue
		}
		ref := entityRef{d.EntityType, d.EntityID}
		owner, seen := owners[ref]
		if !seen {
			owner = s.entityOwner(ctx, d)
			owners[ref] = owner
		}
		if owner != "" && caller.Owns(owner) {
			out = append(out, *d)
		}
	}
	return out
}

func (s *documentService) ListByUser(ctx context.Context, caller model.Caller, userID string) ([]model.Document, error) {
	log := s.log.With(slog.String("op", pkg+"ListByUser"), slog.String("user_id", userID))

	if userID == "" {
		return nil, validationError("user id is required")
	}
	if !caller.Owns(userID) && !caller.IsStaff() {
		return nil, forbiddenError("you cannot list another user's documents")
	}

	key := userListKey(userID)
	if s.opts.Cache != nil {
		raw, ok, err := s.opts.Cache.Get(ctx, key)
		if err != nil {
			log.Warn("failed to read document list from cache", slog.String("error", err.Error()))
		} else if ok {
			var docs []model.Document
			if err := json.Unmarshal(raw, &docs); err == nil && docs != nil {
				return docs, nil
			}
			log.Warn("discarding unreadable cached document list")
		}
	}

	// The load is shared by every waiter on key, so one caller going away must not fail the rest.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.loads.Do(key, func() (any, error) {
		docs, err := s.repo.ListByUser(loadCtx, userID)
		if err != nil {
			return nil, fmt.Errorf("list user documents: %w", err)
		}
		if docs == nil {
			docs = []model.Document{}
		}

		if s.opts.Cache != nil {
			if raw, err := json.Marshal(docs); err == nil {
				if err := s.opts.Cache.Set(loadCtx, key, raw, s.opts.ListCacheTTL); err != nil {
					log.Warn("failed to cache document list", slog.String("error", err.Error()))
				}
			}
		}
		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Document), nil
}

func (s *documentService) Verify(ctx context.Context, caller model.Caller, id string, in VerifyInput) (*model.Document, error) {
	log := s.log.With(slog.String("op", pkg+"Verify"), slog.String("doc_id", id), slog.String("verifier_id", caller.UserID))

	if !caller.IsStaff() {
		return nil, forbiddenError("only RTO officers can verify documents")
	}
	if id == "" {
		return nil, validationError("document id is required")
	}
	if !in.Status.IsDecision() {
		return nil, validationError("status must be VERIFIED or REJECTED")
	}
	reason := strings.TrimSpace(in.Reason)
	if in.Status == model.StatusRejected && reason == "" {
		return nil, validationError("rejection_reason is required when rejecting a document")
	}

	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != model.StatusPending {
		return nil, ErrInvalidState
	}

	decision := model.Decision{
		Status:     in.Status,
		VerifiedBy: caller.UserID,
		VerifiedAt: s.now().UTC(),
	}
	if in.Status == model.StatusRejected {
		decision.Reason = &reason
	}

	updated, err := s.repo.MarkDecision(ctx, id, decision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("lost verification race")
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("record decision: %w", err)
	}

	s.notifyDecision(ctx, updated)
	s.invalidateUserList(ctx, updated.UserID)
	s.opts.Metrics.decided(updated.Status)
	log.Info("document verified", slog.String("status", string(updated.Status)))

	return updated, nil
}

func (s *documentService) notifyDecision(ctx context.Context, doc *model.Document) {
	if s.opts.Notifier == nil {
		return
	}
	label := strings.ReplaceAll(string(doc.DocumentType), "_", " ")
	msg := fmt.Sprintf("Your %s document has been verified.", label)
	if doc.Status == model.StatusRejected && doc.RejectionReason != nil {
		msg = fmt.Sprintf("Your %s document was rejected: %s", label, *doc.RejectionReason)
	}
	if err := s.opts.Notifier.Create(ctx, doc.UserID, msg); err != nil {
		s.log.Error("failed to send notification",
			slog.String("op", pkg+"notifyDecision"), slog.String("doc_id", doc.ID), slog.String("error", err.Error()))
	}
}

func (s *documentService) Download(ctx context.Context, caller model.Caller, id string) (*DownloadResult, error) {
	log := s.log.With(slog.String("op", pkg+"Download"), slog.String("doc_id", id))

	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(ctx, caller, doc) {
		return nil, forbiddenError("you cannot access this document")
	}

	rc, info, err := s.store.Get(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Error("stored file missing for document", slog.String("key", doc.FilePath))
			return nil, ErrBlobMissing
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	size := info.Size
	if size <= 0 {
		size = doc.Size
	}
	return &DownloadResult{
		Content:  rc,
		FileName: doc.FileName,
		MimeType: doc.MimeType,
		Size:     size,
	}, nil
}

// canRead allows the uploader, staff, and the owner of the linked entity.
func (s *documentService) canRead(ctx context.Context, caller model.Caller, doc *model.Document) bool {
	if caller.Owns(doc.UserID) || caller.IsStaff() {
		return true
	}
	if caller.UserID == "" {
		return false
	}
	owner := s.entityOwner(ctx, doc)
	return owner != "" && caller.Owns(owner)
}

// entityOwner returns the owner of doc's entity, or "" when it cannot be resolved.
func (s *documentService) entityOwner(ctx context.Context, doc *model.Document) string {
	owner, err := s.entities.OwnerOf(ctx, doc.EntityType, doc.EntityID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("failed to resolve entity owner", slog.String("doc_id", doc.ID), slog.String("error", err.Error()))
		}
		return ""
	}
	return owner
}

func (s *documentService) Delete(ctx context.Context, caller model.Caller, id string) error {
	log := s.log.With(slog.String("op", pkg+"Delete"), slog.String("doc_id", id))

	doc, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if !caller.Owns(doc.UserID) {
		return forbiddenError("only the uploader can delete a document")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	// The row is gone; a leftover file is an orphan, never a dangling reference.
	if err := s.store.Delete(ctx, doc.FilePath); err != nil {
		log.Error("failed to delete stored file, leaving orphan",
			slog.String("key", doc.FilePath), slog.String("error", err.Error()))
	}

	s.invalidateUserList(ctx, doc.UserID)
	return nil
}

func (s *documentService) find(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, validationError("document id is required")
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %w", ErrNotFound)
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) invalidateUserList(ctx context.Context, userID string) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Del(ctx, userListKey(userID)); err != nil {
		s.log.Warn("failed to invalidate cached document list",
			slog.String("user_id", userID), slog.String("error", err.Error()))
	}
}

func userListKey(userID string) string {
	return "documents:user:" + userID
}
