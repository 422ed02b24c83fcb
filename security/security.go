// Package security implements the PDF Standard Security Handler: password
// derivation, per-object key computation and RC4/AESV2 stream and string
// encryption for revisions 2-4 (40- to 128-bit keys). Revision 5/6 (AES-256)
// is out of scope; BuildStandardEncryption and Authenticate never construct
// or accept that key hierarchy.
package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"encoding/binary"
	"errors"
	"fmt"

	"pdflib/ir/raw"
	"pdflib/observability"
)

// InvalidPasswordError reports that neither the user nor the owner password
// path of Algorithm 3.6 authenticated successfully.
type InvalidPasswordError struct{}

func (InvalidPasswordError) Error() string { return "security: invalid password" }

// InvalidEncryptionDictError reports an Encrypt dictionary missing required
// keys or declaring an unsupported V/R combination.
type InvalidEncryptionDictError struct{ Reason string }

func (e InvalidEncryptionDictError) Error() string {
	return fmt.Sprintf("security: invalid encryption dictionary: %s", e.Reason)
}

type Permissions struct {
	Print, Modify, Copy, ModifyAnnotations, FillForms, ExtractAccessible, Assemble, PrintHighQuality bool
}

// DataClass identifies the kind of payload being encrypted or decrypted.
type DataClass int

const (
	DataClassStream DataClass = iota
	DataClassString
	DataClassMetadataStream
)

// Handler is the Standard Security Handler surface a document consults to
// authenticate a user and to encrypt/decrypt object payloads.
type Handler interface {
	IsEncrypted() bool
	Authenticate(ctx context.Context, password string) error
	DecryptWithFilter(ctx context.Context, objNum, gen int, data []byte, class DataClass, cryptFilter string) ([]byte, error)
	Decrypt(ctx context.Context, objNum, gen int, data []byte, class DataClass) ([]byte, error)
	EncryptWithFilter(ctx context.Context, objNum, gen int, data []byte, class DataClass, cryptFilter string) ([]byte, error)
	Encrypt(ctx context.Context, objNum, gen int, data []byte, class DataClass) ([]byte, error)
	Permissions() Permissions
	EncryptMetadata() bool
}

// HandlerBuilder assembles a Handler from a document's parsed Encrypt
// dictionary and trailer, the way a document loader wires up decryption
// before object contents are read.
type HandlerBuilder struct {
	encryptDict raw.Dictionary
	trailer     raw.Dictionary
	fileID      []byte
	logger      observability.Logger
}

func (b *HandlerBuilder) WithEncryptDict(d raw.Dictionary) *HandlerBuilder {
	b.encryptDict = d
	return b
}
func (b *HandlerBuilder) WithTrailer(d raw.Dictionary) *HandlerBuilder { b.trailer = d; return b }
func (b *HandlerBuilder) WithFileID(id []byte) *HandlerBuilder        { b.fileID = id; return b }
func (b *HandlerBuilder) WithLogger(logger observability.Logger) *HandlerBuilder {
	b.logger = logger
	return b
}

func (b *HandlerBuilder) Build() (Handler, error) {
	if b.encryptDict == nil {
		return noEncryptionHandler{}, nil
	}
	encFilter, _ := b.encryptDict.Get(raw.NameObj{Val: "Filter"})
	if name, ok := encFilter.(raw.NameObj); ok && name.Val != "Standard" {
		return nil, InvalidEncryptionDictError{Reason: "unsupported /Filter, only Standard is implemented"}
	}
	v := int64(1)
	if n, ok := numberVal(b.encryptDict, "V"); ok && n > 0 {
		v = n
	}
	if v > 4 {
		return nil, InvalidEncryptionDictError{Reason: "V>4 not supported"}
	}
	r := int64(2)
	if n, ok := numberVal(b.encryptDict, "R"); ok {
		r = n
	}
	if r > 4 {
		return nil, InvalidEncryptionDictError{Reason: "R>4 not supported"}
	}
	keyLen := KeyLength40 * 8
	if n, ok := numberVal(b.encryptDict, "Length"); ok && n > 0 {
		keyLen = int(n)
	}
	if v >= 4 && keyLen < 128 {
		keyLen = 128
	}
	if keyLen%8 != 0 {
		return nil, InvalidEncryptionDictError{Reason: "Length must be a multiple of 8"}
	}
	owner, _ := stringBytes(b.encryptDict, "O")
	user, _ := stringBytes(b.encryptDict, "U")
	pVal, _ := numberVal(b.encryptDict, "P")
	id := b.fileID
	if len(id) == 0 && b.trailer != nil {
		if arrObj, ok := b.trailer.Get(raw.NameObj{Val: "ID"}); ok {
			if arr, ok := arrObj.(*raw.ArrayObj); ok && arr.Len() > 0 {
				if s, ok := arr.Items[0].(raw.StringObj); ok {
					id = s.Value()
				}
			}
		}
	}
	encryptMeta := true
	if v, ok := boolVal(b.encryptDict, "EncryptMetadata"); ok {
		encryptMeta = v
	}

	baseAlgo := algoRC4
	if v >= 4 {
		baseAlgo = algoAES
	}
	cryptFilters, err := parseCryptFilters(b.encryptDict, baseAlgo)
	if err != nil {
		return nil, err
	}
	streamAlgo, err := resolveCryptFilter(b.encryptDict, "StmF", baseAlgo, cryptFilters)
	if err != nil {
		return nil, err
	}
	stringAlgo, err := resolveCryptFilter(b.encryptDict, "StrF", baseAlgo, cryptFilters)
	if err != nil {
		return nil, err
	}
	useAES := streamAlgo == algoAES || stringAlgo == algoAES || baseAlgo == algoAES

	logger := b.logger
	if logger == nil {
		logger = observability.NopLogger{}
	}

	h := &standardHandler{
		v:            int(v),
		r:            int(r),
		lengthBits:   keyLen,
		owner:        owner,
		user:         user,
		p:            int32(pVal),
		fileID:       id,
		encryptMeta:  encryptMeta,
		useAES:       useAES,
		streamAlgo:   streamAlgo,
		stringAlgo:   stringAlgo,
		cryptFilters: cryptFilters,
		logger:       logger,
	}
	return h, nil
}

type cryptAlgo int

const (
	algoUnset cryptAlgo = iota
	algoNone
	algoRC4
	algoAES
)

type standardHandler struct {
	key          []byte
	v            int
	r            int
	lengthBits   int
	owner        []byte
	user         []byte
	p            int32
	fileID       []byte
	encryptMeta  bool
	authed       bool
	useAES       bool
	streamAlgo   cryptAlgo
	stringAlgo   cryptAlgo
	cryptFilters map[string]cryptAlgo
	logger       observability.Logger
}

func (h *standardHandler) IsEncrypted() bool     { return true }
func (h *standardHandler) EncryptMetadata() bool { return h.encryptMeta }

// Authenticate implements the user-password-then-owner-password flow of
// Algorithm 3.6: try the given password as the user password (Algorithm
// 3.4/3.5); on failure, recover the user password by reversing Algorithm
// 3.3 with the given string as the owner password and retry.
func (h *standardHandler) Authenticate(ctx context.Context, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keyLenBytes := h.lengthBits / 8

	if key := deriveKey([]byte(password), h.owner, h.p, h.fileID, keyLenBytes, h.r); checkUserKey(key, h.user, h.fileID, h.r) {
		h.key = key
		h.authed = true
		h.logger.Debug("security: authenticated as user")
		return nil
	}

	ownerKey := computeOwnerKey(padPassword([]byte(password)), keyLenBytes, h.r)
	recoveredUserPad := recoverUserPassword(ownerKey, h.owner, h.r)
	if key := deriveKey(recoveredUserPad, h.owner, h.p, h.fileID, keyLenBytes, h.r); checkUserKey(key, h.user, h.fileID, h.r) {
		h.key = key
		h.authed = true
		h.logger.Debug("security: authenticated as owner")
		return nil
	}

	h.logger.Error("security: authentication failed")
	return InvalidPasswordError{}
}

func (h *standardHandler) DecryptWithFilter(ctx context.Context, objNum, gen int, data []byte, class DataClass, cryptFilter string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !h.authed {
		if err := h.Authenticate(ctx, ""); err != nil {
			return nil, err
		}
	}
	algo, err := h.algoFor(class, cryptFilter)
	if err != nil {
		return nil, err
	}
	return h.decryptWithAlgo(algo, objNum, gen, data)
}

func (h *standardHandler) Decrypt(ctx context.Context, objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	return h.DecryptWithFilter(ctx, objNum, gen, data, class, "")
}

func (h *standardHandler) Encrypt(ctx context.Context, objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	return h.EncryptWithFilter(ctx, objNum, gen, data, class, "")
}

func (h *standardHandler) EncryptWithFilter(ctx context.Context, objNum, gen int, data []byte, class DataClass, cryptFilter string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !h.authed {
		if err := h.Authenticate(ctx, ""); err != nil {
			return nil, err
		}
	}
	algo, err := h.algoFor(class, cryptFilter)
	if err != nil {
		return nil, err
	}
	if algo == algoNone || len(data) == 0 {
		return data, nil
	}
	key := objectKey(h.key, objNum, gen, algo == algoAES)
	if algo == algoAES {
		return aesCrypt(key, data, true)
	}
	return rc4Crypt(key, data)
}

// CalculateStreamLength returns the on-disk size of a stream of n plaintext
// bytes once encrypted under algo: unchanged for RC4, or the AESV2 IV plus
// PKCS#7-padded ciphertext (16 + ceil((n+1)/16)*16) for AES.
func CalculateStreamLength(algo EncryptAlgorithm, n int) int {
	if algo != AlgoAESV2 {
		return n
	}
	return aes.BlockSize + ((n+1+aes.BlockSize-1)/aes.BlockSize)*aes.BlockSize
}

// CalculateStreamOffset returns the number of leading bytes of an encrypted
// stream that are not part of the plaintext: 0 for RC4, 16 (the IV) for AES.
func CalculateStreamOffset(algo EncryptAlgorithm) int {
	if algo != AlgoAESV2 {
		return 0
	}
	return aes.BlockSize
}

// CalculateStreamLength is the same computation as the package-level
// function, using the algorithm this handler negotiated for stream data.
func (h *standardHandler) CalculateStreamLength(n int) int {
	return CalculateStreamLength(h.streamEncryptAlgorithm(), n)
}

// CalculateStreamOffset is the same computation as the package-level
// function, using the algorithm this handler negotiated for stream data.
func (h *standardHandler) CalculateStreamOffset() int {
	return CalculateStreamOffset(h.streamEncryptAlgorithm())
}

func (h *standardHandler) streamEncryptAlgorithm() EncryptAlgorithm {
	if h.pickAlgo(DataClassStream) == algoAES {
		return AlgoAESV2
	}
	if h.r >= 3 {
		return AlgoRC4V2
	}
	return AlgoRC4V1
}

func (h *standardHandler) pickAlgo(class DataClass) cryptAlgo {
	switch class {
	case DataClassString:
		if h.stringAlgo != algoUnset {
			return h.stringAlgo
		}
	case DataClassStream, DataClassMetadataStream:
		if h.streamAlgo != algoUnset {
			return h.streamAlgo
		}
	}
	if h.useAES {
		return algoAES
	}
	return algoRC4
}

func (h *standardHandler) algoFor(class DataClass, filter string) (cryptAlgo, error) {
	if filter == "Identity" {
		return algoNone, nil
	}
	if filter == "Standard" || filter == "" {
		return h.pickAlgo(class), nil
	}
	if algo, ok := h.cryptFilters[filter]; ok {
		return algo, nil
	}
	return algoUnset, fmt.Errorf("security: crypt filter %s not defined", filter)
}

func (h *standardHandler) decryptWithAlgo(algo cryptAlgo, objNum, gen int, data []byte) ([]byte, error) {
	if algo == algoNone || len(data) == 0 {
		return data, nil
	}
	useAES := algo == algoAES
	key := objectKey(h.key, objNum, gen, useAES)
	if useAES {
		out, err := aesCrypt(key, data, false)
		if err != nil {
			h.logger.Error("security: aes decrypt failed", observability.Int("obj", objNum), observability.Error("err", err))
		}
		return out, err
	}
	return rc4Crypt(key, data)
}

func (h *standardHandler) Permissions() Permissions {
	return Permissions{
		Print:             h.p&(1<<2) != 0,
		Modify:            h.p&(1<<3) != 0,
		Copy:              h.p&(1<<4) != 0,
		ModifyAnnotations: h.p&(1<<5) != 0,
		FillForms:         h.p&(1<<8) != 0,
		ExtractAccessible: h.p&(1<<9) != 0,
		Assemble:          h.p&(1<<10) != 0,
		PrintHighQuality:  h.p&(1<<11) != 0,
	}
}

type noEncryptionHandler struct{}

func (noEncryptionHandler) IsEncrypted() bool { return false }
func (noEncryptionHandler) Authenticate(ctx context.Context, password string) error {
	return nil
}
func (noEncryptionHandler) DecryptWithFilter(ctx context.Context, objNum, gen int, data []byte, class DataClass, cryptFilter string) ([]byte, error) {
	return data, nil
}
func (noEncryptionHandler) Decrypt(ctx context.Context, objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	return data, nil
}
func (noEncryptionHandler) EncryptWithFilter(ctx context.Context, objNum, gen int, data []byte, class DataClass, cryptFilter string) ([]byte, error) {
	return data, nil
}
func (noEncryptionHandler) Encrypt(ctx context.Context, objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	return data, nil
}
func (noEncryptionHandler) Permissions() Permissions {
	return Permissions{Print: true, Modify: true, Copy: true, ModifyAnnotations: true, FillForms: true, ExtractAccessible: true, Assemble: true, PrintHighQuality: true}
}
func (noEncryptionHandler) EncryptMetadata() bool { return false }

// NoopHandler returns a reusable pass-through encryption handler.
func NoopHandler() Handler { return noEncryptionHandler{} }

// Named byte-length constants for the key lengths the Standard security
// handler supports, mirroring the original's EPdfKeyLength enum (there
// expressed in bits: 40, 56, 80, 96, 128).
const (
	KeyLength40  = 5
	KeyLength56  = 7
	KeyLength80  = 10
	KeyLength96  = 12
	KeyLength128 = 16
)

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// padPassword implements Algorithm 3.2 step (a): truncate to 32 bytes, or
// pad with the standard padding string.
func padPassword(pwd []byte) []byte {
	padded := make([]byte, 32)
	n := copy(padded, pwd)
	copy(padded[n:], passwordPadding)
	return padded
}

// deriveKey implements Algorithm 3.2: the file encryption key derived from
// the (padded) user password, the O value, P and the first file identifier.
func deriveKey(pwd, owner []byte, pVal int32, fileID []byte, keyLenBytes int, r int) []byte {
	if keyLenBytes <= 0 {
		keyLenBytes = KeyLength40
	}
	if keyLenBytes > KeyLength128 {
		keyLenBytes = KeyLength128
	}
	data := make([]byte, 0, 32+len(owner)+4+len(fileID))
	data = append(data, padPassword(pwd)...)
	data = append(data, owner...)
	var pBuf [4]byte
	binary.LittleEndian.PutUint32(pBuf[:], uint32(pVal))
	data = append(data, pBuf[:]...)
	data = append(data, fileID...)

	sum := md5.Sum(data)
	key := sum[:]
	if r >= 3 {
		for i := 0; i < 50; i++ {
			sum = md5.Sum(key[:keyLenBytes])
			key = sum[:]
		}
	}
	return key[:keyLenBytes]
}

// computeOwnerKey implements Algorithm 3.3 steps (a)-(c): the RC4 key
// derived from the padded owner password (or user password standing in for
// it), iterated 50 times for R>=3.
func computeOwnerKey(ownerPad []byte, keyLenBytes, r int) []byte {
	if keyLenBytes <= 0 || keyLenBytes > KeyLength128 {
		keyLenBytes = KeyLength40
	}
	sum := md5.Sum(ownerPad)
	key := sum[:]
	if r >= 3 {
		for i := 0; i < 50; i++ {
			sum = md5.Sum(key[:keyLenBytes])
			key = sum[:]
		}
	}
	return key[:keyLenBytes]
}

// computeOValue implements Algorithm 3.3 steps (d)-(f): the padded user
// password RC4-encrypted with the owner key, then for R>=3 nineteen more
// rounds with the key XORed by an increasing counter.
func computeOValue(userPad, ownerKey []byte, r int) []byte {
	val := rc4Simple(ownerKey, userPad)
	if r >= 3 {
		for i := 1; i <= 19; i++ {
			val = rc4Simple(xorKeyCounter(ownerKey, byte(i)), val)
		}
	}
	return val
}

func xorKeyCounter(key []byte, counter byte) []byte {
	out := make([]byte, len(key))
	for i, b := range key {
		out[i] = b ^ counter
	}
	return out
}

// computeUserValueR3 implements Algorithm 3.5 for R>=3: MD5(padding ||
// file ID), RC4 with the file key, then 19 more RC4 rounds with the key
// XORed by an increasing counter; the first 16 bytes plus 16 bytes of
// arbitrary padding form the 32-byte U value.
func computeUserValueR3(fileKey, fileID []byte) []byte {
	sum := md5.Sum(append(append([]byte{}, passwordPadding...), fileID...))
	val := sum[:]
	val = rc4Simple(fileKey, val)
	for i := 1; i <= 19; i++ {
		val = rc4Simple(xorKeyCounter(fileKey, byte(i)), val)
	}
	out := make([]byte, 32)
	copy(out, val[:16])
	return out
}

// checkUserKey verifies a candidate file key against the stored U value,
// implementing the comparison half of Algorithm 3.6 for both R2 (compare
// the full 32-byte RC4(fileKey, padding)) and R>=3 (compare only the first
// 16 bytes of the Algorithm 3.5 result, since bytes 17-32 are arbitrary).
func checkUserKey(fileKey, userEntry, fileID []byte, r int) bool {
	if r <= 2 {
		expect := rc4Simple(fileKey, passwordPadding)
		return len(userEntry) >= 32 && comparePrefix(expect, userEntry[:32])
	}
	expect := computeUserValueR3(fileKey, fileID)
	return len(userEntry) >= 16 && comparePrefix(expect[:16], userEntry[:16])
}

// recoverUserPassword implements Algorithm 3.7: reversing the RC4 rounds of
// Algorithm 3.3 against the stored O value with the owner key, yielding the
// padded user password an owner-authenticated caller can re-derive the file
// key from.
func recoverUserPassword(ownerKey, oValue []byte, r int) []byte {
	val := append([]byte{}, oValue...)
	if r >= 3 {
		for i := 19; i >= 1; i-- {
			val = rc4Simple(xorKeyCounter(ownerKey, byte(i)), val)
		}
	}
	return rc4Simple(ownerKey, val)
}

// PermissionsValue builds the Standard security permissions flags for a document.
func PermissionsValue(p raw.Permissions) int32 {
	val := int32(-4) // bits 1-2 (reserved) are cleared by two's-complement -4
	if !p.Print {
		val &^= 1 << 2
	}
	if !p.Modify {
		val &^= 1 << 3
	}
	if !p.Copy {
		val &^= 1 << 4
	}
	if !p.ModifyAnnotations {
		val &^= 1 << 5
	}
	if !p.FillForms {
		val &^= 1 << 8
	}
	if !p.ExtractAccessible {
		val &^= 1 << 9
	}
	if !p.Assemble {
		val &^= 1 << 10
	}
	if !p.PrintHighQuality {
		val &^= 1 << 11
	}
	return val
}

// EncryptAlgorithm selects which cipher and revision BuildStandardEncryption
// targets. It mirrors the three algorithms this handler actually implements.
type EncryptAlgorithm int

const (
	AlgoRC4V1 EncryptAlgorithm = iota // V=1, R=2, 40-bit RC4
	AlgoRC4V2                         // V=2, R=3, variable-length RC4
	AlgoAESV2                         // V=4, R=4, 128-bit AES via a StdCF crypt filter
)

// BuildStandardEncryption constructs an Encrypt dictionary and file
// encryption key for the Standard security handler under the given
// algorithm. keyLenBits is only consulted for AlgoRC4V2 (default 128);
// AlgoRC4V1 is always 40-bit and AlgoAESV2 is always 128-bit per spec.
func BuildStandardEncryption(userPwd, ownerPwd string, permissions raw.Permissions, fileID []byte, encryptMetadata bool, algo EncryptAlgorithm, keyLenBits int) (*raw.DictObj, []byte, error) {
	if len(ownerPwd) == 0 {
		ownerPwd = userPwd
	}

	var v, r int
	switch algo {
	case AlgoRC4V1:
		v, r, keyLenBits = 1, 2, 40
	case AlgoRC4V2:
		v, r = 2, 3
		if keyLenBits <= 0 {
			keyLenBits = 128
		}
	case AlgoAESV2:
		v, r, keyLenBits = 4, 4, 128
	default:
		return nil, nil, fmt.Errorf("security: unknown encryption algorithm %d", algo)
	}
	if keyLenBits%8 != 0 || keyLenBits < 40 || keyLenBits > 128 {
		return nil, nil, fmt.Errorf("security: invalid key length %d", keyLenBits)
	}
	keyLenBytes := keyLenBits / 8

	userPad := padPassword([]byte(userPwd))
	ownerPad := padPassword([]byte(ownerPwd))
	ownerKey := computeOwnerKey(ownerPad, keyLenBytes, r)
	oVal := computeOValue(userPad, ownerKey, r)

	pVal := PermissionsValue(permissions)
	fileKey := deriveKey([]byte(userPwd), oVal, pVal, fileID, keyLenBytes, r)

	var uVal []byte
	if r <= 2 {
		uVal = rc4Simple(fileKey, passwordPadding)
	} else {
		uVal = computeUserValueR3(fileKey, fileID)
	}

	enc := raw.Dict()
	enc.Set(raw.NameObj{Val: "Filter"}, raw.NameObj{Val: "Standard"})
	enc.Set(raw.NameObj{Val: "V"}, raw.NumberInt(int64(v)))
	enc.Set(raw.NameObj{Val: "R"}, raw.NumberInt(int64(r)))
	if v >= 2 {
		enc.Set(raw.NameObj{Val: "Length"}, raw.NumberInt(int64(keyLenBits)))
	}
	enc.Set(raw.NameObj{Val: "O"}, raw.Str(oVal))
	enc.Set(raw.NameObj{Val: "U"}, raw.Str(uVal))
	enc.Set(raw.NameObj{Val: "P"}, raw.NumberInt(int64(pVal)))
	if !encryptMetadata {
		enc.Set(raw.NameObj{Val: "EncryptMetadata"}, raw.Bool(false))
	}
	if algo == AlgoAESV2 {
		stdCF := raw.Dict()
		stdCF.Set(raw.NameObj{Val: "CFM"}, raw.NameObj{Val: "AESV2"})
		stdCF.Set(raw.NameObj{Val: "AuthEvent"}, raw.NameObj{Val: "DocOpen"})
		stdCF.Set(raw.NameObj{Val: "Length"}, raw.NumberInt(16))
		cf := raw.Dict()
		cf.Set(raw.NameObj{Val: "StdCF"}, stdCF)
		enc.Set(raw.NameObj{Val: "CF"}, cf)
		enc.Set(raw.NameObj{Val: "StmF"}, raw.NameObj{Val: "StdCF"})
		enc.Set(raw.NameObj{Val: "StrF"}, raw.NameObj{Val: "StdCF"})
		enc.Set(raw.NameObj{Val: "EFF"}, raw.NameObj{Val: "StdCF"})
	}
	return enc, fileKey, nil
}

// parseCryptFilters reads the /CF dictionary of a V=4 Encrypt dictionary,
// mapping each named crypt filter to the algorithm its /CFM selects.
func parseCryptFilters(dict raw.Dictionary, base cryptAlgo) (map[string]cryptAlgo, error) {
	out := make(map[string]cryptAlgo)
	if dict == nil {
		return out, nil
	}
	cfObj, ok := dict.Get(raw.NameObj{Val: "CF"})
	if !ok {
		return out, nil
	}
	cfDict, ok := cfObj.(*raw.DictObj)
	if !ok {
		return nil, errors.New("security: CF must be a dictionary")
	}
	for name, obj := range cfDict.KV {
		entry, ok := obj.(*raw.DictObj)
		if !ok {
			return nil, errors.New("security: crypt filter entry must be a dictionary")
		}
		algo := base
		if cfmObj, ok := entry.Get(raw.NameObj{Val: "CFM"}); ok {
			if cfmName, ok := cfmObj.(raw.NameObj); ok {
				switch cfmName.Val {
				case "V2":
					algo = algoRC4
				case "AESV2":
					algo = algoAES
				case "None":
					algo = algoNone
				default:
					return nil, fmt.Errorf("security: unsupported crypt filter method %s", cfmName.Val)
				}
			}
		}
		out[name] = algo
	}
	return out, nil
}

func resolveCryptFilter(dict raw.Dictionary, key string, base cryptAlgo, filters map[string]cryptAlgo) (cryptAlgo, error) {
	name := nameVal(dict, key)
	if name == "" || name == "Standard" {
		if algo, ok := filters["Standard"]; ok {
			return algo, nil
		}
		return base, nil
	}
	if name == "Identity" {
		return algoNone, nil
	}
	if algo, ok := filters[name]; ok {
		return algo, nil
	}
	return algoUnset, fmt.Errorf("security: crypt filter %s not defined", name)
}

// objectKey implements Algorithm 3.1: the file key extended with the
// object number and generation (and, for AES, the "sAlT" constant),
// truncated after an MD5 hash to key length + 5 bytes (max 16).
func objectKey(fileKey []byte, objNum, gen int, useAES bool) []byte {
	key := append([]byte{}, fileKey...)
	key = append(key, byte(objNum), byte(objNum>>8), byte(objNum>>16))
	key = append(key, byte(gen), byte(gen>>8))
	if useAES {
		key = append(key, 0x73, 0x41, 0x6C, 0x54) // "sAlT"
	}
	hashLen := len(fileKey) + 5
	if hashLen > 16 {
		hashLen = 16
	}
	hash := md5.Sum(key)
	return hash[:hashLen]
}

func rc4Simple(key []byte, data []byte) []byte {
	out := make([]byte, len(data))
	c, _ := rc4.NewCipher(key)
	c.XORKeyStream(out, data)
	return out
}

func rc4Crypt(key []byte, data []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}

// aesCrypt implements AESV2 payload encryption: a random 16-byte IV
// prepended to CBC ciphertext, with PKCS#7-style byte padding on encrypt.
func aesCrypt(key []byte, data []byte, encrypt bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if encrypt {
		iv := make([]byte, aes.BlockSize)
		if _, err := rand.Read(iv); err != nil {
			return nil, err
		}
		padLen := aes.BlockSize - (len(data) % aes.BlockSize)
		pad := bytes.Repeat([]byte{byte(padLen)}, padLen)
		plain := append(append([]byte{}, data...), pad...)
		out := make([]byte, aes.BlockSize+len(plain))
		copy(out[:aes.BlockSize], iv)
		mode := cipher.NewCBCEncrypter(block, iv)
		mode.CryptBlocks(out[aes.BlockSize:], plain)
		return out, nil
	}
	if len(data) < aes.BlockSize {
		return nil, errors.New("security: aes ciphertext too short")
	}
	iv := data[:aes.BlockSize]
	ct := data[aes.BlockSize:]
	if len(ct)%aes.BlockSize != 0 {
		return nil, errors.New("security: aes ciphertext not a multiple of the block size")
	}
	out := make([]byte, len(ct))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(out, ct)
	if len(out) == 0 {
		return out, nil
	}
	pad := int(out[len(out)-1])
	if pad <= 0 || pad > aes.BlockSize || pad > len(out) {
		return nil, errors.New("security: invalid aes padding")
	}
	return out[:len(out)-pad], nil
}

func comparePrefix(a, b []byte) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func numberVal(dict raw.Dictionary, key string) (int64, bool) {
	if dict == nil {
		return 0, false
	}
	if v, ok := dict.Get(raw.NameObj{Val: key}); ok {
		if n, ok := v.(raw.NumberObj); ok {
			return n.Int(), true
		}
	}
	return 0, false
}

func stringBytes(dict raw.Dictionary, key string) ([]byte, bool) {
	if dict == nil {
		return nil, false
	}
	if v, ok := dict.Get(raw.NameObj{Val: key}); ok {
		if s, ok := v.(raw.StringObj); ok {
			return s.Value(), true
		}
	}
	return nil, false
}

func boolVal(dict raw.Dictionary, key string) (bool, bool) {
	if dict == nil {
		return false, false
	}
	if v, ok := dict.Get(raw.NameObj{Val: key}); ok {
		if b, ok := v.(raw.BoolObj); ok {
			return b.V, true
		}
	}
	return false, false
}

func nameVal(dict raw.Dictionary, key string) string {
	if dict == nil {
		return ""
	}
	if v, ok := dict.Get(raw.NameObj{Val: key}); ok {
		if n, ok := v.(raw.NameObj); ok {
			return n.Val
		}
	}
	return ""
}
