package runtime

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// tarBuildContext streams the context directory as a tar archive with the
// rendered Dockerfile injected under dockerfileName. The archive is produced
// through a pipe so large contexts are never buffered in memory.
func tarBuildContext(contextDir, dockerfileName, dockerfile string) io.ReadCloser {
	pr, pw := io.Pipe()

	go func() {
		tw := tar.NewWriter(pw)

		err := filepath.WalkDir(contextDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			relPath, err := filepath.Rel(contextDir, path)
			if err != nil {
				return err
			}
			if relPath == "." {
				return nil
			}
			if excludedFromContext(relPath) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			header, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			header.Name = filepath.ToSlash(relPath)
			if d.IsDir() {
				header.Name += "/"
			}

			if err := tw.WriteHeader(header); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			_, err = io.Copy(tw, f)
			return err
		})

		if err == nil {
			err = writeTarFile(tw, dockerfileName, []byte(dockerfile))
		}
		if err == nil {
			err = tw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr
}

// writeTarFile appends a regular file entry with the given content.
func writeTarFile(tw *tar.Writer, name string, content []byte) error {
	header := &tar.Header{
		Name: name,
		Mode: 0644,
		Size: int64(len(content)),
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

// excludedFromContext filters entries that must never reach the daemon: git
// metadata and dockhand's own state file.
func excludedFromContext(relPath string) bool {
	base := filepath.Base(relPath)
	return base == ".git" || base == ".dockhand.state.json"
}
