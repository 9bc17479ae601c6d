package sealedsender

import (
	"errors"
	"fmt"

	"github.com/Setheum-Foundation/SignalMetadataKit/crypto/key_ed25519"
)

//go:generate mockgen -source=validator.go -destination=mocks/validator.go -package=mocks

// CertificateValidator decides whether a sender certificate is valid at a
// time given in milliseconds since the epoch.
type CertificateValidator interface {
	Validate(cert *SenderCertificate, validationTime uint64) error
}

// TrustRootValidator accepts certificates chaining up to any of its trust roots.
type TrustRootValidator struct {
	trustRoots []key_ed25519.PublicKey
}

var _ CertificateValidator = (*TrustRootValidator)(nil)

func NewTrustRootValidator(trustRoots ...key_ed25519.PublicKey) *TrustRootValidator {
	return &TrustRootValidator{trustRoots: trustRoots}
}

func (v *TrustRootValidator) Validate(cert *SenderCertificate, validationTime uint64) error {
	if cert == nil {
		return fmt.Errorf("%w: nil certificate", ErrInvalidCertificate)
	}
	if len(v.trustRoots) == 0 {
		return fmt.Errorf("%w: no trust roots", ErrInvalidCertificate)
	}
	var errs []error
	for _, root := range v.trustRoots {
		err := cert.Validate(root, validationTime)
		if err == nil {
			return nil
		}
		// A correctly signed but expired certificate is reported as expired
		if errors.Is(err, ErrCertificateExpired) || errors.Is(err, ErrRevokedCertificate) {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
