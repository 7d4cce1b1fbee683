package imaputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/pepperpark/imapmigrator/internal/mailbox"
)

// ctxDialer dials with ctx and closes the connection once ctx is done, which
// unblocks any IMAP command still waiting on the server.
type ctxDialer struct {
	ctx  context.Context
	conn net.Conn
	stop func() bool
}

func (d *ctxDialer) Dial(network, addr string) (net.Conn, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(d.ctx, network, addr)
	if err != nil {
		return nil, err
	}
	d.conn = conn
	d.stop = context.AfterFunc(d.ctx, func() { _ = conn.Close() })
	return conn, nil
}

func (d *ctxDialer) close() {
	if d.conn == nil {
		return
	}
	d.stop()
	_ = d.conn.Close()
}

// DialAndLogin connects and logs into an IMAP server. With useTLS the
// connection uses implicit TLS, or STARTTLS when startTLS is also set.
// Cancelling ctx closes the connection.
func DialAndLogin(ctx context.Context, m mailbox.Mailbox, startTLS bool, tlsConfig *tls.Config) (*client.Client, error) {
	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	d := &ctxDialer{ctx: ctx}
	fail := func(c *client.Client, err error) (*client.Client, error) {
		if c != nil {
			_ = c.Logout()
		}
		d.close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	var c *client.Client
	var err error
	if m.UseTLS && !startTLS {
		c, err = client.DialWithDialerTLS(d, addr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(d, addr)
	}
	if err != nil {
		return fail(nil, err)
	}
	if m.UseTLS && startTLS {
		if err := c.StartTLS(tlsConfig); err != nil {
			return fail(c, err)
		}
	}
	// Raw IMAP wire debug, never enabled by default since it shows LOGIN.
	if os.Getenv("IMAPMIGRATOR_IMAP_DEBUG") == "1" {
		c.SetDebug(os.Stderr)
	}
	if err := c.Login(m.Username, m.Password); err != nil {
		return fail(c, err)
	}
	return c, nil
}

// ListMailboxes returns all mailbox names, sorted, always including INBOX.
func ListMailboxes(ctx context.Context, c *client.Client) ([]string, error) {
	mailboxes := []string{}
	ch := make(chan *imap.MailboxInfo, 32)
	done := make(chan error, 1)
	hasInbox := false
	go func() {
		done <- c.List("", "*", ch)
		close(done)
	}()
	for m := range ch {
		if m != nil {
			mailboxes = append(mailboxes, m.Name)
			if strings.EqualFold(m.Name, "INBOX") {
				hasInbox = true
			}
		}
	}
	if err := <-done; err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if !hasInbox {
		mailboxes = append(mailboxes, "INBOX")
	}
	sort.Strings(mailboxes)
	return mailboxes, nil
}

// Lister prints mailbox folders using a direct IMAP session instead of the
// external backup tool.
type Lister struct {
	StartTLS bool
	Insecure bool
	Out      io.Writer
}

func (l *Lister) ListFolders(ctx context.Context, m mailbox.Mailbox) error {
	tlsConfig := &tls.Config{ServerName: m.Host, InsecureSkipVerify: l.Insecure}
	c, err := DialAndLogin(ctx, m, l.StartTLS, tlsConfig)
	if err != nil {
		return fmt.Errorf("connect %s: %w", m.Host, err)
	}
	defer c.Logout()

	boxes, err := ListMailboxes(ctx, c)
	if err != nil {
		return fmt.Errorf("list mailboxes: %w", err)
	}
	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "%s:\n", m)
	for _, b := range boxes {
		fmt.Fprintf(out, "  %s\n", b)
	}
	return nil
}
