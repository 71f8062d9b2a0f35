package contextfile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// WriteRequest is one fully-populated pending write. Both ingestion paths
// reduce their input to this form before touching the store.
type WriteRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Kind    Kind   `json:"kind"`
}

// Item is a source for exactly one context file write.
type Item interface {
	// Normalize resolves the item into a write request without side effects.
	Normalize() (WriteRequest, error)
}

// ManualEntry is a name and content typed into the add dialog.
type ManualEntry struct {
	Name    string
	Content string
	Kind    Kind
}

// Normalize validates the entry. Empty content is a valid write; an empty
// kind is derived from the name and content.
func (m ManualEntry) Normalize() (WriteRequest, error) {
	if err := ValidateName(m.Name); err != nil {
		return WriteRequest{}, err
	}
	kind := m.Kind
	if kind == "" {
		kind = DeriveKind(m.Name, m.Content)
	}
	return WriteRequest{Name: m.Name, Content: m.Content, Kind: kind}, nil
}

// DroppedItem is a file received via drag and drop: its original name,
// raw bytes, and the MIME type reported by the drop source (may be empty).
type DroppedItem struct {
	Name string
	Data []byte
	MIME string
}

// Normalize fills the write request from the item itself so the caller
// retypes nothing. Image payloads are encoded to a data URL; payloads
// that already are data URLs pass through verbatim; text is taken as-is.
func (d DroppedItem) Normalize() (WriteRequest, error) {
	if err := ValidateName(d.Name); err != nil {
		return WriteRequest{}, err
	}

	content := string(d.Data)
	if IsDataURL(content) {
		return WriteRequest{Name: d.Name, Content: content, Kind: KindImage}, nil
	}

	mimeType := strings.TrimSpace(d.MIME)
	isImage := strings.HasPrefix(mimeType, "image/")
	if mimeType == "" {
		isImage = Classify(d.Name) == ClassImage
	}
	if isImage {
		if !strings.HasPrefix(mimeType, "image/") {
			mimeType = MIMEForExtension(d.Name)
		}
		return WriteRequest{
			Name:    d.Name,
			Content: EncodeDataURL(mimeType, d.Data),
			Kind:    KindImage,
		}, nil
	}

	return WriteRequest{Name: d.Name, Content: content, Kind: KindText}, nil
}

// Ingestor feeds manual entries and dropped files into a Store. The add
// dialog stages first and commits on confirmation; a drop onto the main
// view writes immediately.
type Ingestor struct {
	store  Store
	logger *zap.Logger
}

// NewIngestor creates an Ingestor bound to store.
func NewIngestor(store Store, logger *zap.Logger) (*Ingestor, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{store: store, logger: logger}, nil
}

// Stage normalizes an item without writing anything. The returned request
// is what Commit will write once the caller confirms.
func (i *Ingestor) Stage(item Item) (WriteRequest, error) {
	req, err := item.Normalize()
	if err != nil {
		return WriteRequest{}, fmt.Errorf("failed to stage item: %w", err)
	}
	i.logger.Debug("staged context item",
		zap.String("name", req.Name),
		zap.String("kind", string(req.Kind)),
		zap.Int("size", len(req.Content)))
	return req, nil
}

// Commit performs the single write for a previously staged request.
func (i *Ingestor) Commit(ctx context.Context, req WriteRequest) error {
	return i.store.Write(ctx, req.Name, req.Content, req.Kind)
}

// Drop normalizes and writes in one step, with no confirmation.
func (i *Ingestor) Drop(ctx context.Context, item Item) error {
	req, err := item.Normalize()
	if err != nil {
		return fmt.Errorf("failed to ingest item: %w", err)
	}
	return i.store.Write(ctx, req.Name, req.Content, req.Kind)
}
