package verify

import "errors"

var (
	// ErrBusy means a verification for the same user is already running.
	ErrBusy = errors.New("verification already in progress")

	// ErrUnreadableQR means the attachment could not be decoded as a QR code.
	ErrUnreadableQR = errors.New("unreadable QR code")

	// ErrNotQR1Be means the QR code points somewhere other than qr1.be.
	ErrNotQR1Be = errors.New("QR code is not a qr1.be contact card")

	// ErrNoContact means the contact card carried no email address.
	ErrNoContact = errors.New("contact card has no email")

	// ErrNotMember means the card's email is not in the membership store.
	ErrNotMember = errors.New("email not found in membership store")
)
