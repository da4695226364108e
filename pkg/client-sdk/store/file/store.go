package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wrap-near/guest-relayer/pkg/client-sdk/types"
)

const (
	guestStoreFilename = "state.json"
)

// storeData is the on-disk layout, with the same keys the browser app
// kept in local storage.
type storeData struct {
	SeedPhrase        string `json:"seedPhrase,omitempty"`
	AccountId         string `json:"accountId,omitempty"`
	AccessPublic      string `json:"accessPublic,omitempty"`
	AccessSecret      string `json:"accessSecret,omitempty"`
	Stage             string `json:"stage,omitempty"`
	PendingSeedPhrase string `json:"pendingSeedPhrase,omitempty"`
}

func (d storeData) isEmpty() bool {
	return d == storeData{}
}

func (d storeData) decode() types.GuestState {
	return types.GuestState{
		SeedPhrase:        d.SeedPhrase,
		AccountId:         d.AccountId,
		AccessPublic:      d.AccessPublic,
		AccessSecret:      d.AccessSecret,
		Stage:             d.Stage,
		PendingSeedPhrase: d.PendingSeedPhrase,
	}
}

type guestStore struct {
	filePath string
	lock     sync.Mutex
}

func NewGuestStore(baseDir string) (types.GuestStore, error) {
	if len(baseDir) <= 0 {
		return nil, fmt.Errorf("missing base directory")
	}

	datadir := cleanAndExpandPath(baseDir)
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return nil, fmt.Errorf("failed to initialize datadir: %s", err)
	}
	filePath := filepath.Join(datadir, guestStoreFilename)

	store := &guestStore{filePath: filePath}

	if _, err := store.open(); err != nil {
		return nil, fmt.Errorf("failed to open store: %s", err)
	}

	return store, nil
}

func (s *guestStore) Close() {}

func (s *guestStore) GetType() string {
	return types.FileStore
}

func (s *guestStore) GetDatadir() string {
	return filepath.Dir(s.filePath)
}

func (s *guestStore) AddData(_ context.Context, data types.GuestState) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	sd := &storeData{
		SeedPhrase:        data.SeedPhrase,
		AccountId:         data.AccountId,
		AccessPublic:      data.AccessPublic,
		AccessSecret:      data.AccessSecret,
		Stage:             data.Stage,
		PendingSeedPhrase: data.PendingSeedPhrase,
	}
	if err := s.write(sd); err != nil {
		return fmt.Errorf("failed to write to store: %s", err)
	}
	return nil
}

func (s *guestStore) GetData(_ context.Context) (*types.GuestState, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	sd, err := s.open()
	if err != nil {
		return nil, err
	}
	if sd == nil || sd.isEmpty() {
		return nil, nil
	}

	data := sd.decode()
	return &data, nil
}

func (s *guestStore) CleanData(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.write(&storeData{}); err != nil {
		return fmt.Errorf("failed to write to store: %s", err)
	}
	return nil
}

func (s *guestStore) open() (*storeData, error) {
	file, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open store: %s", err)
		}
		if err := s.write(&storeData{}); err != nil {
			return nil, fmt.Errorf("failed to initialize store: %s", err)
		}
		return nil, nil
	}

	data := &storeData{}
	if len(file) <= 0 {
		return data, nil
	}
	if err := json.Unmarshal(file, data); err != nil {
		return nil, fmt.Errorf("failed to read file store: %s", err)
	}
	return data, nil
}

// write replaces the whole file. The state holds secrets, so the file is
// readable by the owner only.
func (s *guestStore) write(data *storeData) error {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	return filepath.Clean(os.ExpandEnv(path))
}
