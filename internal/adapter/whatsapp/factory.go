package whatsapp

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pscheid92/wagate/internal/domain"
	"github.com/pscheid92/wagate/internal/platform/logging"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
)

const (
	sqliteDialect = "sqlite3"

	// longer encoded ids fall back to a digest to stay under filesystem name limits
	maxDeviceNameLen = 200
)

// Factory builds whatsmeow-backed clients with one device store file per session.
type Factory struct {
	dir string
}

func NewFactory(dir string) (*Factory, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create device store directory: %w", err)
	}
	return &Factory{dir: dir}, nil
}

// DevicePath returns the device store file of a session.
func (f *Factory) DevicePath(sessionID string) string {
	return filepath.Join(f.dir, deviceName(sessionID)+".db")
}

// deviceName maps a session id to a single path segment that is also safe in
// a sqlite URI. Letters, digits and ".-+@" are kept, every other byte
// (including "_") becomes "_xx" in lowercase hex, so distinct ids never share
// a name. Names that would get too long become "_h" plus a sha256 digest; "_h"
// cannot come out of the byte encoding.
func deviceName(sessionID string) string {
	var b strings.Builder
	for i := 0; i < len(sessionID); i++ {
		ch := sessionID[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9',
			ch == '.', ch == '-', ch == '+', ch == '@':
			b.WriteByte(ch)
		default:
			fmt.Fprintf(&b, "_%02x", ch)
		}
	}

	name := b.String()
	if len(name) > maxDeviceNameLen || name == "." || name == ".." {
		sum := sha256.Sum256([]byte(sessionID))
		return "_h" + hex.EncodeToString(sum[:])
	}
	return name
}

func (f *Factory) NewClient(sessionID string, handler domain.EventHandler) (domain.Client, error) {
	log := logging.WithSession(sessionID)

	db, err := sql.Open(sqliteDialect, "file:"+f.DevicePath(sessionID)+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	container := sqlstore.NewWithDB(db, sqliteDialect, newLogger(log, "Database"))
	if err := container.Upgrade(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to upgrade device store: %w", err)
	}

	device, err := container.GetFirstDevice()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	wa := whatsmeow.NewClient(device, newLogger(log, "Client"))
	// Reconnects are driven by the session controller, which recreates the client.
	wa.EnableAutoReconnect = false

	c := &Client{
		wa:      wa,
		db:      db,
		handler: handler,
		log:     log,
	}
	wa.AddEventHandler(c.onEvent)

	slog.Debug("Messaging client created", "session_id", sessionID, "paired", wa.Store.ID != nil)
	return c, nil
}
