package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
)

// Upload copies a local file to remotePath on the node, creating parent
// directories as needed. File permissions are carried over.
func (r *Runner) Upload(ctx context.Context, addr string, localPath string, remotePath string) error {
	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", localPath, err)
	}
	defer local.Close()

	info, err := local.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat '%s': %w", localPath, err)
	}

	r.log.Debug("Uploading file", "addr", addr, "from", localPath, "to", remotePath, "size", info.Size())
	return r.transfer(addr, remotePath, info.Mode().Perm(), func(remote io.Writer) error {
		_, err := io.Copy(remote, local)
		return err
	})
}

// Put writes content to remotePath on the node, creating parent directories
// as needed.
func (r *Runner) Put(ctx context.Context, addr string, content []byte, remotePath string) error {
	r.log.Debug("Writing remote file", "addr", addr, "to", remotePath, "size", len(content))
	return r.transfer(addr, remotePath, 0o644, func(remote io.Writer) error {
		_, err := remote.Write(content)
		return err
	})
}

func (r *Runner) transfer(addr string, remotePath string, mode os.FileMode, write func(io.Writer) error) error {
	client, err := r.dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	files, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("failed to open SFTP session on %s: %w", addr, err)
	}
	defer files.Close()

	if err := files.MkdirAll(path.Dir(remotePath)); err != nil {
		return fmt.Errorf("failed to create remote directory '%s': %w", path.Dir(remotePath), err)
	}

	file, err := files.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file '%s': %w", remotePath, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write remote file '%s': %w", remotePath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close remote file '%s': %w", remotePath, err)
	}

	if err := files.Chmod(remotePath, mode); err != nil {
		return fmt.Errorf("failed to chmod remote file '%s': %w", remotePath, err)
	}
	return nil
}
