package model

import "time"

// EntityType identifies the kind of domain object a document is attached to.
type EntityType string

const (
	EntityVehicle       EntityType = "VEHICLE"
	EntityDLApplication EntityType = "DL_APPLICATION"
	EntityUser          EntityType = "USER"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityVehicle, EntityDLApplication, EntityUser:
		return true
	}
	return false
}

// DocumentType classifies the content of an uploaded document.
type DocumentType string

const (
	DocAadhaar      DocumentType = "AADHAAR"
	DocPAN          DocumentType = "PAN"
	DocAddressProof DocumentType = "ADDRESS_PROOF"
	DocPhoto        DocumentType = "PHOTO"
	DocSignature    DocumentType = "SIGNATURE"
	DocInsurance    DocumentType = "INSURANCE"
	DocOther        DocumentType = "OTHER"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocAadhaar, DocPAN, DocAddressProof, DocPhoto, DocSignature, DocInsurance, DocOther:
		return true
	}
	return false
}

// Status is the verification state of a document.
// PENDING is the only non-terminal state.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusRejected Status = "REJECTED"
)

// IsDecision reports whether s is a valid verification outcome.
func (s Status) IsDecision() bool {
	return s == StatusVerified || s == StatusRejected
}

// Document is one uploaded file linked to exactly one owning entity.
// It carries no persistence tags and is shared by the HTTP, service and repository layers.
type Document struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	EntityType      EntityType   `json:"entity_type"`
	EntityID        string       `json:"entity_id"`
	DocumentType    DocumentType `json:"document_type"`
	FilePath        string       `json:"file_path"`
	FileName        string       `json:"file_name"`
	MimeType        string       `json:"mime_type"`
	Size            int64        `json:"size"`
	Status          Status       `json:"status"`
	VerifiedBy      *string      `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time   `json:"verified_at,omitempty"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Decision is the outcome recorded when a document leaves PENDING.
type Decision struct {
	Status     Status
	VerifiedBy string
	VerifiedAt time.Time
	Reason     *string
}
