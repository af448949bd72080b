// Package models defines the persistent entities shared across the collection,
// processing, and synthesis layers of pulsewatch.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessState is the tri-state lifecycle of a NewsItem's pipeline processing.
type ProcessState int

const (
	ProcessPending ProcessState = iota
	ProcessDone
	ProcessFailed
)

// NewsItem is one collected, deduplicated item of intelligence.
//
// Invariants: URL is unique across the table; ContentHash is unique when
// non-empty; Processed only transitions forward (Pending -> {Done, Failed}).
type NewsItem struct {
	ID             uuid.UUID
	SourceType     string
	SourceName     string
	SourceURL      string
	Title          string
	Content        string
	Summary        string
	URL            string
	PublishedAt    time.Time
	CollectedAt    time.Time
	Author         string
	Categories     []string
	Processed      ProcessState
	RelevanceScore float64
	ContentHash    string
	EmbeddingRef   *string
	Metadata       map[string]any
}

// RunStatus is the lifecycle state of a CollectionRun.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// CollectionRun records one invocation of one adapter. Rows are created at
// the start of a run and transitioned to a terminal status on exit; never
// mutated thereafter.
type CollectionRun struct {
	ID             uuid.UUID
	CollectorType  string
	CollectorName  string
	StartedAt      time.Time
	CompletedAt    *time.Time
	Status         RunStatus
	ItemsCollected int
	ItemsNew       int
	ItemsDuplicate int
	ItemsFiltered  int
	ErrorMessage   string
	Metadata       map[string]any
}

// EntityType is a closed set of tracked-entity classifications.
type EntityType string

const (
	EntityPerson           EntityType = "PERSON"
	EntityOrganization     EntityType = "ORGANIZATION"
	EntityGovernmentAgency EntityType = "GOVERNMENT_AGENCY"
	EntityMilitaryUnit     EntityType = "MILITARY_UNIT"
	EntityLocation         EntityType = "LOCATION"
	EntityPoliticalParty   EntityType = "POLITICAL_PARTY"
	EntityEvent            EntityType = "EVENT"
)

// TrackedEntity is a user-owned entity of interest; mentions accumulate
// against it. (user_id, name_lower) is unique. When Metadata carries a
// canonical external identifier, that identifier is authoritative for
// deduplication ahead of NameLower.
type TrackedEntity struct {
	EntityID   uuid.UUID
	UserID     uuid.UUID
	Name       string
	NameLower  string
	EntityType EntityType
	CreatedAt  time.Time
	FirstSeen  time.Time
	LastSeen   time.Time
	Metadata   map[string]any
}

// CanonicalID returns the external knowledge-base identifier from Metadata,
// if this entity has been linked, and whether one was present.
func (e *TrackedEntity) CanonicalID() (string, bool) {
	if e.Metadata == nil {
		return "", false
	}
	v, ok := e.Metadata["canonical_id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MentionSource identifies which of the three mutually-exclusive source
// columns an EntityMention points at.
type MentionSource struct {
	DocumentID     *uuid.UUID
	NewsArticleID  *uuid.UUID
	NewsItemID     *uuid.UUID
}

// Valid reports whether exactly one source reference is set, per the table
// invariant.
func (s MentionSource) Valid() bool {
	n := 0
	if s.DocumentID != nil {
		n++
	}
	if s.NewsArticleID != nil {
		n++
	}
	if s.NewsItemID != nil {
		n++
	}
	return n == 1
}

// EntityMention is an immutable record of one entity occurrence in one
// source document.
type EntityMention struct {
	MentionID uuid.UUID
	EntityID  uuid.UUID
	Source    MentionSource
	UserID    uuid.UUID
	ChunkID   string
	Context   string // <=500 chars of surrounding text
	Timestamp time.Time
}

// RelationshipType is a closed set of inter-entity relationship
// classifications.
type RelationshipType string

const (
	RelSupports       RelationshipType = "supports"
	RelOpposes        RelationshipType = "opposes"
	RelCollaborates   RelationshipType = "collaborates_with"
	RelImplements     RelationshipType = "implements"
	RelImpacts        RelationshipType = "impacts"
	RelRespondsTo     RelationshipType = "responds_to"
	RelPartOf         RelationshipType = "part_of"
	RelLeads          RelationshipType = "leads"
	RelFunds          RelationshipType = "funds"
	RelRegulates      RelationshipType = "regulates"
	RelAssociatedWith RelationshipType = "associated_with"
	RelCoOccurrence   RelationshipType = "co_occurrence"
)

// EntityRelationship is a typed, directed edge between two tracked
// entities. (SourceEntityID, TargetEntityID, RelationshipType) is unique;
// self-relationships are disallowed; updates only ever raise MentionCount,
// LastSeen, and Confidence.
type EntityRelationship struct {
	ID               uuid.UUID
	SourceEntityID   uuid.UUID
	TargetEntityID   uuid.UUID
	RelationshipType RelationshipType
	Description      string
	FirstSeen        time.Time
	LastSeen         time.Time
	MentionCount     int
	Confidence       float64
	UserID           uuid.UUID
	Metadata         map[string]any
}

// CollectedItem is an adapter's output record, before persistence. Never
// persisted directly; the Deduper/Store turns it into a NewsItem.
type CollectedItem struct {
	SourceType  string
	SourceName  string
	SourceURL   string
	Title       string
	Summary     string
	URL         string
	Published   time.Time
	Author      string
	Categories  []string
	RawContent  string
	Metadata    map[string]any
}
