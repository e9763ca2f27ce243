package source

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	gossh "golang.org/x/crypto/ssh"

	"github.com/samhoang/themesync/internal/errors"
)

// isSSHURL reports whether url is cloned over ssh, either scp-like
// (git@host:owner/repo) or ssh://.
func isSSHURL(url string) bool {
	if strings.HasPrefix(url, "ssh://") {
		return true
	}
	if strings.Contains(url, "://") {
		return false
	}
	at := strings.Index(url, "@")
	colon := strings.Index(url, ":")
	return at > 0 && colon > at
}

// authMethod builds public key auth from an in-memory private key. Keys are
// only used for ssh remotes; other remotes clone anonymously.
func authMethod(url string, opts Options) (transport.AuthMethod, error) {
	if opts.PrivateKey == "" || !isSSHURL(url) {
		return nil, nil
	}

	keys, err := gitssh.NewPublicKeys(opts.SSHUser, []byte(opts.PrivateKey), "")
	if err != nil {
		return nil, errors.NewImportError("load private key", redactURL(url), fmt.Errorf("%w: %v", errors.ErrAuthFailed, err))
	}

	callback := opts.HostKeyCallback
	if callback == nil {
		callback = gossh.InsecureIgnoreHostKey()
	}
	keys.HostKeyCallback = callback
	return keys, nil
}
