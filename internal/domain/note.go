package domain

import "time"

// ViewMode is how a note is currently presented.
type ViewMode string

const (
	ViewModeEdit    ViewMode = "edit"
	ViewModePreview ViewMode = "preview"
	ViewModeSplit   ViewMode = "split"
)

// Editable reports whether the mode allows modifying the note source.
func (m ViewMode) Editable() bool {
	return m == ViewModeEdit || m == ViewModeSplit
}

// Note is one markdown note. The body lives as a file in the notes
// directory; the row holds metadata only.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FilePath  string    `json:"filePath"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteStore persists note metadata and content.
type NoteStore interface {
	CreateNote(n *Note, content string) error
	GetNote(id string) (*Note, error)
	ListNotes() ([]Note, error)
	Content(id string) (string, error)
	UpdateContent(id, content string) error
	DeleteNote(id string) error
}
