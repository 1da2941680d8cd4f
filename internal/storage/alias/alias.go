// Package alias persists human-readable device names.
//
// Aliases live in a small semicolon-delimited CSV file, one "mac;alias"
// row per device. The file is rewritten whole on every change.
package alias

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/xtxerr/wifitracker/internal/errors"
	"github.com/xtxerr/wifitracker/internal/logging"
	"github.com/xtxerr/wifitracker/internal/validation"
)

const delimiter = ';'

// Store reads and writes the alias file.
//
// Store is safe for concurrent use within one process. Set holds a lock
// across its read-modify-write so concurrent Sets never lose updates.
type Store struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

// NewStore creates a store for the alias file at path. The file is not
// touched until the first Load or Set.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path: path,
		log:  logging.OrComponent(logger, "alias"),
	}
}

// Path returns the alias file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the MAC to alias mapping. A missing file is an empty
// mapping. When a MAC appears more than once, the last row wins.
func (s *Store) Load() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	r.FieldsPerRecord = -1

	aliases := make(map[string]string)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.NewDecode(err.Error()), "parse aliases")
		}
		if len(row) < 2 {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("parse aliases: line %d: %w", line, errors.NewMissingField("alias"))
		}
		aliases[row[0]] = row[1]
	}
	return aliases, nil
}

// Get returns the alias of mac, or "" if none is set.
func (s *Store) Get(mac string) (string, error) {
	aliases, err := s.Load()
	if err != nil {
		return "", err
	}
	return aliases[mac], nil
}

// Set assigns alias to mac. If mac already has an alias and force is
// false, Set returns an error wrapping errors.ErrAliasAlreadySet and the
// file is left unchanged.
func (s *Store) Set(mac, alias string, force bool) error {
	if err := validation.ValidateMAC(mac); err != nil {
		return err
	}
	if err := validation.ValidateAlias(alias); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	aliases, err := s.load()
	if err != nil {
		return err
	}

	if existing, ok := aliases[mac]; ok && !force {
		return errors.NewAliasAlreadySet(mac, existing)
	}

	aliases[mac] = alias
	if err := s.write(aliases); err != nil {
		return err
	}

	s.log.Info("alias set", "mac", mac, "alias", alias, "forced", force)
	return nil
}

// write replaces the alias file with rows sorted by MAC. The new content
// goes to a temp file in the same directory which is then renamed over
// the old file, so readers see either the old or the new mapping.
func (s *Store) write(aliases map[string]string) error {
	data, err := encode(aliases)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create alias dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp alias file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write aliases: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync aliases: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close aliases: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod aliases: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace aliases: %w", err)
	}
	return nil
}

func encode(aliases map[string]string) ([]byte, error) {
	macs := make([]string, 0, len(aliases))
	for mac := range aliases {
		macs = append(macs, mac)
	}
	sort.Strings(macs)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	for _, mac := range macs {
		if err := w.Write([]string{mac, aliases[mac]}); err != nil {
			return nil, fmt.Errorf("encode aliases: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode aliases: %w", err)
	}
	return buf.Bytes(), nil
}
