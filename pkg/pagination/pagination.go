package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
)

const (
	// DefaultLimit is the page size when the client does not ask for one.
	// Browse grids render 2, 3 or 4 columns, so it divides evenly by all.
	DefaultLimit = 24
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100
)

// Params holds the cursor inputs a controller passes down to a repo query.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is one keyset position: newest-first ordering keyed on
// (created_at, id) so rows created in the same instant still page stably.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps the requested page size into [1, MaxLimit],
// defaulting when unset.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// FetchSize is the normalized limit plus one lookahead row; the extra row
// only signals that a next page exists and is never returned.
func FetchSize(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Encode serializes the cursor for the wire.
func (c Cursor) Encode() string {
	payload := fmt.Sprintf("%s|%s", c.CreatedAt.UTC().Format(time.RFC3339Nano), c.ID.String())
	return base64.URLEncoding.EncodeToString([]byte(payload))
}

// Parse decodes a wire cursor. A blank cursor means the first page and
// returns nil, nil; anything malformed is a validation error since the
// client fabricated it.
func Parse(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed cursor")
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed cursor")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed cursor")
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed cursor")
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}
