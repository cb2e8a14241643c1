package services

import (
	"errors"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestCheckAvatar(t *testing.T) {
	ct, err := CheckAvatar(pngHeader)
	if err != nil || ct != "image/png" {
		t.Fatalf("png rejected: %q %v", ct, err)
	}
	if _, err := CheckAvatar([]byte("just some text")); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
	big := make([]byte, MaxAvatarBytes+1)
	copy(big, pngHeader)
	if _, err := CheckAvatar(big); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
}

func TestAvatarURL(t *testing.T) {
	s := NewMediaService(nil, nil, "/media/")
	if got := s.avatarURL("u1"); got != "/media/avatars/u1" {
		t.Fatalf("unexpected avatar url %q", got)
	}
}
