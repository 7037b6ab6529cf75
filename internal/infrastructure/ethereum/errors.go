package ethereum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"

	"gdbank/internal/domain/bank"
)

// Signer phrases that mean the user turned the request down.
var rejectionPhrases = []string{
	"denied",
	"rejected",
	"declined",
}

// classify maps signer refusals onto bank.ErrUserRejected and leaves every
// other error as is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bank.ErrUserRejected) {
		return err
	}
	if errors.Is(err, keystore.ErrLocked) || errors.Is(err, keystore.ErrDecrypt) {
		return fmt.Errorf("%w: %v", bank.ErrUserRejected, err)
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range rejectionPhrases {
		if strings.Contains(msg, phrase) {
			return fmt.Errorf("%w: %v", bank.ErrUserRejected, err)
		}
	}
	return err
}
