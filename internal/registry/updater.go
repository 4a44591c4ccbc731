package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// IOError is any failure while persisting the registry, its backups, or the
// staging artifacts it references. It always names the file involved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("registry: %s %s: %v", e.Op, e.Path, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// Updater persists integration results. Every destructive write follows the
// same sequence: write a timestamped backup of the prior content, confirm
// it, then replace the live file atomically (write-temp-then-rename). If the
// backup cannot be written the live file is never touched.
//
// The two artifacts of one integration are deliberately written in
// dependency order, staging model first and registry entry second, so a
// crash in between leaves an orphan staging file rather than a registry
// entry pointing at a missing model.
//
// No locking is performed. Concurrent updaters against the same registry
// file are undefined behavior; callers must serialize invocations.
type Updater struct {
	// RegistryPath is the raw-sources registry file.
	RegistryPath string
	// StagingDir receives generated staging models (stg_<table>.sql).
	StagingDir string
	// Backup disables the backup step when false is explicitly requested
	// (mirrors the --no-backup integration flag).
	Backup bool
	// Now stamps backup file names; tests may pin it. Defaults to time.Now.
	Now func() time.Time
}

// backupStamp is the timestamp layout in backup file names.
const backupStamp = "20060102T150405"

// Apply persists one integration: the staging model text under model name
// modelName, then the registry entry referencing it. It returns the new full
// registry snapshot.
func (u *Updater) Apply(src *Source, modelName, sql string) (*File, error) {
	reg, err := Load(u.RegistryPath)
	if err != nil {
		return nil, err
	}

	// Staging artifact first; see the ordering note on Updater.
	artifact := filepath.Join(u.StagingDir, modelName+".sql")
	if err := u.replaceFile(artifact, []byte(sql)); err != nil {
		return nil, err
	}

	reg.Upsert(src)
	data, err := reg.Encode()
	if err != nil {
		return nil, err
	}
	if err := u.replaceFile(u.RegistryPath, data); err != nil {
		return nil, err
	}
	return reg, nil
}

// StagingArtifactPath returns where Apply writes the given model.
func (u *Updater) StagingArtifactPath(modelName string) string {
	return filepath.Join(u.StagingDir, modelName+".sql")
}

// replaceFile writes data to path with the backup-then-atomic-replace
// sequence. The parent directory is created if needed.
func (u *Updater) replaceFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &IOError{Op: "create directory for", Path: path, Err: err}
	}
	if err := u.backup(path); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &IOError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &IOError{Op: "replace", Path: path, Err: err}
	}
	return nil
}

// backup copies the current content of path to a timestamped sibling. A
// missing live file needs no backup. Failure here is fatal to the update:
// never write without a prior backup.
func (u *Updater) backup(path string) error {
	if !u.Backup {
		return nil
	}
	prior, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &IOError{Op: "read for backup", Path: path, Err: err}
	}
	now := u.Now
	if now == nil {
		now = time.Now
	}
	bak := fmt.Sprintf("%s.%s.backup", path, now().UTC().Format(backupStamp))
	if err := os.WriteFile(bak, prior, 0o644); err != nil {
		return &IOError{Op: "write backup", Path: bak, Err: err}
	}
	return nil
}
