package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"granite/internal/domain"
)

// NoteStore implements domain.NoteStore using SQLite for metadata and
// markdown files under the data directory for content.
type NoteStore struct {
	db *DB
}

func NewNoteStore(db *DB) *NoteStore {
	return &NoteStore{db: db}
}

func (s *NoteStore) CreateNote(n *domain.Note, content string) error {
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.FilePath == "" {
		n.FilePath = filepath.Join(s.db.DataDir(), n.ID+".md")
	}
	if err := os.WriteFile(n.FilePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("write note file: %w", err)
	}
	_, err := s.db.Conn().Exec(
		`INSERT INTO notes (id, title, file_path, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.FilePath, n.CreatedAt, n.UpdatedAt,
	)
	return err
}

func (s *NoteStore) GetNote(id string) (*domain.Note, error) {
	n := &domain.Note{}
	err := s.db.Conn().QueryRow(
		`SELECT id, title, file_path, created_at, updated_at FROM notes WHERE id = ?`, id,
	).Scan(&n.ID, &n.Title, &n.FilePath, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

func (s *NoteStore) ListNotes() ([]domain.Note, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, title, file_path, created_at, updated_at FROM notes ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.FilePath, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Content reads the note's markdown body from disk.
func (s *NoteStore) Content(id string) (string, error) {
	n, err := s.GetNote(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(n.FilePath)
	if err != nil {
		return "", fmt.Errorf("read note file: %w", err)
	}
	return string(data), nil
}

// UpdateContent writes the note's markdown body and touches the row.
func (s *NoteStore) UpdateContent(id, content string) error {
	n, err := s.GetNote(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(n.FilePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("write note file: %w", err)
	}
	_, err = s.db.Conn().Exec(`UPDATE notes SET updated_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *NoteStore) DeleteNote(id string) error {
	n, err := s.GetNote(id)
	if err != nil {
		return err
	}
	_ = os.Remove(n.FilePath)
	_, err = s.db.Conn().Exec(`DELETE FROM notes WHERE id = ?`, id)
	return err
}

// FindByPath returns the note whose file is at path, if any.
func (s *NoteStore) FindByPath(path string) (*domain.Note, error) {
	n := &domain.Note{}
	err := s.db.Conn().QueryRow(
		`SELECT id, title, file_path, created_at, updated_at FROM notes WHERE file_path = ?`, path,
	).Scan(&n.ID, &n.Title, &n.FilePath, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}
