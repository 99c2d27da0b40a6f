package graphdb

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/taxonomist/core/cas"
	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
)

// Original texts are stored xz-compressed under their content key.

func compress(text string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) (string, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create xz reader: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (t *dbTx) SaveOriginalText(key, name, text string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if key == "" {
		key = cas.KeyString(text)
	}
	if err := cas.ValidateKey(key); err != nil {
		return err
	}
	data, err := compress(text)
	if err != nil {
		return fmt.Errorf("graphdb: compress original text: %w", err)
	}
	_, err = t.exec(`
		INSERT INTO original_texts (project, key, name, size, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project, key) DO UPDATE SET name = excluded.name`,
		key, name, len(text), data)
	if err != nil {
		return fmt.Errorf("graphdb: save original text: %w", err)
	}
	return nil
}

func (t *dbTx) OriginalText(key string) (string, error) {
	var (
		data []byte
		size int
	)
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT data, size FROM original_texts WHERE project = ? AND key = ?`, t.project, key,
	).Scan(&data, &size)
	if errors.Is(err, sql.ErrNoRows) {
		return "", taxerrors.NewNotFound("original text", key)
	}
	if err != nil {
		return "", fmt.Errorf("graphdb: read original text: %w", err)
	}
	text, err := decompress(data)
	if err != nil {
		return "", fmt.Errorf("graphdb: decompress original text: %w", err)
	}
	if len(text) != size || !cas.Verify([]byte(text), key) {
		return "", fmt.Errorf("graphdb: original text %s: %w", key, cas.ErrInvalidKey)
	}
	return text, nil
}
