// pkg/remote/remote.go

// Package remote is the file source collaborator. It fetches each
// partner's inbound order files to local disk and archives processed
// files on the server into per-outcome log folders.
package remote

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/config"
)

// Archive categories. Valid files land under order_logs, rejected files
// under error_logs.
const (
	CategoryOrderLogs = "order_logs"
	CategoryErrorLogs = "error_logs"
)

// Client talks to the FTP file source. Each operation dials a fresh
// session; the batch runs are short-lived and sessions are cheap compared
// to holding an idle control connection across partners.
type Client struct {
	cfg    *config.FTPConfig
	logger *zap.Logger
}

// NewClient creates a file source client.
func NewClient(cfg *config.FTPConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger.Named("remote"),
	}
}

func (c *Client) connect() (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(c.cfg.Address(), ftp.DialWithTimeout(c.cfg.DialTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to dial file source %s: %w", c.cfg.Address(), err)
	}
	if err := conn.Login(c.cfg.User, c.cfg.Password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("failed to log in to file source: %w", err)
	}
	return conn, nil
}

// inboundDir is the remote folder a partner drops new order files into.
func (c *Client) inboundDir(folder string) string {
	return path.Join(c.cfg.RemoteRoot, folder, "orders")
}

// FetchToLocal downloads every file in a partner's inbound folder into a
// fresh run-scoped local directory and returns the local paths. An empty
// or missing inbound folder yields no paths and no error; the caller
// skips the partner.
func (c *Client) FetchToLocal(folder, localRoot string) (string, []string, error) {
	conn, err := c.connect()
	if err != nil {
		return "", nil, err
	}
	defer conn.Quit()

	remoteDir := c.inboundDir(folder)
	entries, err := conn.List(remoteDir)
	if err != nil {
		// Partners without an inbound folder yet are skipped, not failed.
		c.logger.Warn("Inbound folder is not listable",
			zap.String("folder", remoteDir),
			zap.Error(err))
		return "", nil, nil
	}

	var names []string
	for _, entry := range entries {
		if entry.Type == ftp.EntryTypeFile {
			names = append(names, entry.Name)
		}
	}
	if len(names) == 0 {
		c.logger.Info("Inbound folder is empty", zap.String("folder", remoteDir))
		return "", nil, nil
	}

	localDir := filepath.Join(localRoot, uuid.New().String())
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create download directory %s: %w", localDir, err)
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		localPath := filepath.Join(localDir, name)
		if err := c.download(conn, path.Join(remoteDir, name), localPath); err != nil {
			return "", nil, err
		}
		paths = append(paths, localPath)
	}

	c.logger.Info("Fetched inbound files",
		zap.String("folder", folder),
		zap.Int("files", len(paths)),
		zap.String("localDir", localDir))
	return localDir, paths, nil
}

func (c *Client) download(conn *ftp.ServerConn, remotePath, localPath string) error {
	resp, err := conn.Retr(remotePath)
	if err != nil {
		return fmt.Errorf("failed to retrieve %s: %w", remotePath, err)
	}
	defer resp.Close()

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return nil
}

// Archive moves a processed file out of the partner's inbound folder into
// <logs root>/<category>/<folder> on the server, so a rerun never sees
// it again.
func (c *Client) Archive(folder, fileName, category string) error {
	conn, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Quit()

	destDir := path.Join(c.cfg.LogsRoot, category, folder)
	c.ensureDir(conn, destDir)

	from := path.Join(c.inboundDir(folder), fileName)
	to := path.Join(destDir, fileName)
	if err := conn.Rename(from, to); err != nil {
		return fmt.Errorf("failed to archive %s to %s: %w", from, to, err)
	}

	c.logger.Info("Archived file",
		zap.String("file", fileName),
		zap.String("folder", folder),
		zap.String("category", category))
	return nil
}

// ensureDir creates each path segment, tolerating segments that already
// exist. The server reports "already exists" as a generic error, so the
// result is discarded and Rename surfaces any real problem.
func (c *Client) ensureDir(conn *ftp.ServerConn, dir string) {
	segments := splitPath(dir)
	current := ""
	for _, segment := range segments {
		current = path.Join(current, segment)
		_ = conn.MakeDir(current)
	}
}

func splitPath(p string) []string {
	var segments []string
	clean := path.Clean(p)
	for clean != "." && clean != "/" && clean != "" {
		segments = append([]string{path.Base(clean)}, segments...)
		clean = path.Dir(clean)
	}
	return segments
}
