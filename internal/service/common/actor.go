//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

// DetectActor gathers host and user information for control requests.
func DetectActor() (*lookout.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &lookout.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
