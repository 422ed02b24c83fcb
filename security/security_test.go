package security

import (
	"context"
	"errors"
	"testing"

	"pdflib/ir/raw"
	"pdflib/observability"
)

func TestStandardRC4RoundTrip(t *testing.T) {
	ctx := context.Background()
	owner := raw.StringObj{Bytes: []byte("ownerpass")}
	fileID := []byte("fileid0")
	pVal := int32(-4)

	key := deriveKey([]byte(""), owner.Value(), pVal, fileID, 5, 2)
	user := rc4Simple(key, passwordPadding)

	enc := raw.Dict()
	enc.Set(raw.NameObj{Val: "Filter"}, raw.NameObj{Val: "Standard"})
	enc.Set(raw.NameObj{Val: "V"}, raw.NumberInt(1))
	enc.Set(raw.NameObj{Val: "R"}, raw.NumberInt(2))
	enc.Set(raw.NameObj{Val: "Length"}, raw.NumberInt(40))
	enc.Set(raw.NameObj{Val: "O"}, owner)
	enc.Set(raw.NameObj{Val: "U"}, raw.StringObj{Bytes: user})
	enc.Set(raw.NameObj{Val: "P"}, raw.NumberObj{I: int64(pVal), IsInt: true})

	h, err := (&HandlerBuilder{}).WithEncryptDict(enc).WithFileID(fileID).Build()
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	if err := h.Authenticate(ctx, ""); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	plain := []byte("secret data")
	encData, err := h.Encrypt(ctx, 5, 0, plain, DataClassStream)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	decData, err := h.Decrypt(ctx, 5, 0, encData, DataClassStream)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(decData) != string(plain) {
		t.Fatalf("roundtrip mismatch: got %q want %q", decData, plain)
	}
}

func TestBuildStandardEncryptionRC4V1RoundTrip(t *testing.T) {
	ctx := context.Background()
	fileID := []byte("0123456789ABCDEF")
	perms := raw.Permissions{Print: true, Modify: false, Copy: true, ModifyAnnotations: true, FillForms: true, ExtractAccessible: true, Assemble: true, PrintHighQuality: true}

	enc, fileKey, err := BuildStandardEncryption("user123", "owner456", perms, fileID, true, AlgoRC4V1, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	h, err := (&HandlerBuilder{}).WithEncryptDict(enc).WithFileID(fileID).Build()
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	if err := h.Authenticate(ctx, "user123"); err != nil {
		t.Fatalf("authenticate as user: %v", err)
	}
	sh := h.(*standardHandler)
	if string(sh.key) != string(fileKey) {
		t.Fatalf("derived key mismatch: got %x want %x", sh.key, fileKey)
	}

	plain := []byte("round trip payload")
	ct, err := h.Encrypt(ctx, 7, 0, plain, DataClassStream)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	pt, err := h.Decrypt(ctx, 7, 0, ct, DataClassStream)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(pt) != string(plain) {
		t.Fatalf("roundtrip mismatch: got %q want %q", pt, plain)
	}
	if got, want := len(ct), sh.CalculateStreamLength(len(plain)); got != want {
		t.Fatalf("CalculateStreamLength mismatch: got %d want %d", got, want)
	}
	if sh.CalculateStreamOffset() != 0 {
		t.Fatalf("expected zero stream offset for RC4")
	}
}

func TestBuildStandardEncryptionAESV2RoundTrip(t *testing.T) {
	ctx := context.Background()
	fileID := []byte("FEDCBA9876543210")
	perms := raw.Permissions{Print: true, Copy: true}

	enc, _, err := BuildStandardEncryption("", "ownerpw", perms, fileID, true, AlgoAESV2, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	h, err := (&HandlerBuilder{}).WithEncryptDict(enc).WithFileID(fileID).Build()
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	if err := h.Authenticate(ctx, ""); err != nil {
		t.Fatalf("authenticate as empty user password: %v", err)
	}

	plain := []byte("aes encrypted stream body")
	ct, err := h.Encrypt(ctx, 3, 0, plain, DataClassStream)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if len(ct) <= len(plain) {
		t.Fatalf("expected iv+padding overhead, got %d bytes for %d byte input", len(ct), len(plain))
	}
	pt, err := h.Decrypt(ctx, 3, 0, ct, DataClassStream)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(pt) != string(plain) {
		t.Fatalf("roundtrip mismatch: got %q want %q", pt, plain)
	}

	sh := h.(*standardHandler)
	if got, want := len(ct), sh.CalculateStreamLength(len(plain)); got != want {
		t.Fatalf("CalculateStreamLength mismatch: got %d want %d", got, want)
	}
	if sh.CalculateStreamOffset() != 16 {
		t.Fatalf("expected 16-byte IV offset for AES, got %d", sh.CalculateStreamOffset())
	}
}

func TestCalculateStreamLengthAndOffset(t *testing.T) {
	if got, want := CalculateStreamLength(AlgoRC4V1, 100), 100; got != want {
		t.Fatalf("RC4 stream length: got %d want %d", got, want)
	}
	if got := CalculateStreamOffset(AlgoRC4V2); got != 0 {
		t.Fatalf("RC4 stream offset: got %d want 0", got)
	}
	// 100 plaintext bytes -> 16 (IV) + ceil(101/16)*16 = 16 + 112 = 128.
	if got, want := CalculateStreamLength(AlgoAESV2, 100), 128; got != want {
		t.Fatalf("AES stream length: got %d want %d", got, want)
	}
	if got := CalculateStreamOffset(AlgoAESV2); got != 16 {
		t.Fatalf("AES stream offset: got %d want 16", got)
	}
}

// TestAuthenticateSymmetry verifies both the user and owner passwords
// unlock the same file key, and that a wrong password unlocks neither.
func TestAuthenticateSymmetry(t *testing.T) {
	ctx := context.Background()
	fileID := []byte("symmetryfileid01")
	perms := raw.Permissions{Print: true}

	enc, fileKey, err := BuildStandardEncryption("userpw", "ownerpw", perms, fileID, true, AlgoRC4V2, 128)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	hUser, err := (&HandlerBuilder{}).WithEncryptDict(enc).WithFileID(fileID).Build()
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	if err := hUser.Authenticate(ctx, "userpw"); err != nil {
		t.Fatalf("authenticate as user: %v", err)
	}
	if got := hUser.(*standardHandler).key; string(got) != string(fileKey) {
		t.Fatalf("user-derived key mismatch: got %x want %x", got, fileKey)
	}

	hOwner, err := (&HandlerBuilder{}).WithEncryptDict(enc).WithFileID(fileID).Build()
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	if err := hOwner.Authenticate(ctx, "ownerpw"); err != nil {
		t.Fatalf("authenticate as owner: %v", err)
	}
	if got := hOwner.(*standardHandler).key; string(got) != string(fileKey) {
		t.Fatalf("owner-derived key mismatch: got %x want %x", got, fileKey)
	}

	hWrong, err := (&HandlerBuilder{}).WithEncryptDict(enc).WithFileID(fileID).Build()
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	err = hWrong.Authenticate(ctx, "nope")
	if err == nil {
		t.Fatalf("expected authentication failure for wrong password")
	}
	var invalidPassword InvalidPasswordError
	if !errors.As(err, &invalidPassword) {
		t.Fatalf("expected InvalidPasswordError, got %T: %v", err, err)
	}
}

func TestAuthenticateRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &standardHandler{logger: observability.NopLogger{}}
	if err := h.Authenticate(ctx, "anything"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildRejectsInvalidEncryptionDict(t *testing.T) {
	enc := raw.Dict()
	enc.Set(raw.NameObj{Val: "Filter"}, raw.NameObj{Val: "Standard"})
	enc.Set(raw.NameObj{Val: "V"}, raw.NumberInt(6))

	_, err := (&HandlerBuilder{}).WithEncryptDict(enc).Build()
	var dictErr InvalidEncryptionDictError
	if !errors.As(err, &dictErr) {
		t.Fatalf("expected InvalidEncryptionDictError, got %T: %v", err, err)
	}
}

func TestPermissionsValueRoundTrip(t *testing.T) {
	perms := raw.Permissions{Print: true, Modify: false, Copy: true, ModifyAnnotations: false, FillForms: true, ExtractAccessible: false, Assemble: true, PrintHighQuality: false}
	pVal := PermissionsValue(perms)

	h := &standardHandler{p: pVal}
	got := h.Permissions()
	want := Permissions{Print: true, Modify: false, Copy: true, ModifyAnnotations: false, FillForms: true, ExtractAccessible: false, Assemble: true, PrintHighQuality: false}
	if got != want {
		t.Fatalf("permissions mismatch: got %+v want %+v", got, want)
	}
}

func TestNoopHandlerPassthrough(t *testing.T) {
	ctx := context.Background()
	h := NoopHandler()
	if h.IsEncrypted() {
		t.Fatalf("expected NoopHandler to report unencrypted")
	}
	data := []byte("plain")
	out, err := h.Encrypt(ctx, 1, 0, data, DataClassStream)
	if err != nil || string(out) != string(data) {
		t.Fatalf("expected passthrough, got %q, err %v", out, err)
	}
}
