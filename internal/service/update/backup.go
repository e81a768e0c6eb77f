package update

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// backupDirPermissions is the mode for a newly created backup directory.
const backupDirPermissions = 0o755

// backupArchives copies cached package archives matching the package naming
// pattern into the backup directory, preserving mode and modification time.
// Files whose backup copy already matches by size and mtime are skipped.
// It returns the number of archives copied.
func backupArchives(cacheDir, backupDir, packageName string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(cacheDir, packageName+"*.deb"))
	if err != nil {
		return 0, fmt.Errorf("scan archive cache: %w", err)
	}

	if len(matches) == 0 {
		return 0, nil
	}

	if err = os.MkdirAll(backupDir, backupDirPermissions); err != nil {
		return 0, fmt.Errorf("create backup directory: %w", err)
	}

	copied := 0

	for _, source := range matches {
		destination := filepath.Join(backupDir, filepath.Base(source))

		upToDate, err := isUpToDate(source, destination)
		if err != nil {
			return copied, err
		}

		if upToDate {
			continue
		}

		if err = copyPreserving(source, destination); err != nil {
			return copied, err
		}

		copied++
	}

	return copied, nil
}

// isUpToDate reports whether the destination already mirrors the source by
// size and modification time.
func isUpToDate(source, destination string) (bool, error) {
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", source, err)
	}

	destinationInfo, err := os.Stat(destination)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("stat %s: %w", destination, err)
	}

	return destinationInfo.Size() == sourceInfo.Size() &&
		destinationInfo.ModTime().Equal(sourceInfo.ModTime()), nil
}

// copyPreserving copies a file and carries over its mode and mtime.
func copyPreserving(source, destination string) error {
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("stat %s: %w", source, err)
	}

	in, err := os.Open(filepath.Clean(source))
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(destination), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, sourceInfo.Mode())
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return fmt.Errorf("copy %s: %w", source, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", destination, err)
	}

	if err = os.Chtimes(destination, sourceInfo.ModTime(), sourceInfo.ModTime()); err != nil {
		return fmt.Errorf("preserve mtime of %s: %w", destination, err)
	}

	return nil
}
