package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"dyad.dev/pkg/crypto/sha256"
	"dyad.dev/pkg/utils/chk"
	"dyad.dev/pkg/utils/errorf"
)

// recordSize is the rs field of the aes128gcm header block. The poke payload
// always fits one record.
const recordSize = 4096

// infoIKM, infoCEK and infoNonce are the HKDF info strings of RFC 8291 §3.3
// and RFC 8188 §2.2/§2.3. infoIKM is followed by the two public points.
const (
	infoIKM   = "WebPush: info\x00"
	infoCEK   = "Content-Encoding: aes128gcm\x00"
	infoNonce = "Content-Encoding: nonce\x00"
)

// decodeKey decodes a subscription key field. Browsers emit unpadded
// base64url but some clients pad, so padding is stripped first.
func decodeKey(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Encrypt seals payload for the subscription whose public key and auth
// secret are given, producing the complete aes128gcm body: header block
// (salt, record size, application server public key) followed by one
// encrypted record.
//
// # Expected Behaviour
//
// A fresh application server key pair and salt are generated per call. The
// content encryption key and nonce are derived per RFC 8291 from the ECDH
// agreement between the ephemeral key and the subscription key, bound to the
// auth secret. The record carries the payload and the final-record delimiter
// 0x02.
func Encrypt(payload []byte, p256dh, auth string) (body []byte, err error) {
	var uaPublic, authSecret []byte
	if uaPublic, err = decodeKey(p256dh); chk.E(err) {
		return
	}
	if authSecret, err = decodeKey(auth); chk.E(err) {
		return
	}
	var asKey *ecdh.PrivateKey
	if asKey, err = ecdh.P256().GenerateKey(rand.Reader); chk.E(err) {
		return
	}
	asPublic := asKey.PublicKey().Bytes()
	var uaKey *ecdh.PublicKey
	if uaKey, err = ecdh.P256().NewPublicKey(uaPublic); err != nil {
		err = errorf.E("invalid subscription key: %v", err)
		return
	}
	var shared []byte
	if shared, err = asKey.ECDH(uaKey); chk.E(err) {
		return
	}
	ikmInfo := make([]byte, 0, len(infoIKM)+len(uaPublic)+len(asPublic))
	ikmInfo = append(ikmInfo, infoIKM...)
	ikmInfo = append(ikmInfo, uaPublic...)
	ikmInfo = append(ikmInfo, asPublic...)
	ikm := make([]byte, 32)
	if _, err = io.ReadFull(
		hkdf.New(sha256.New, shared, authSecret, ikmInfo), ikm,
	); chk.E(err) {
		return
	}
	salt := make([]byte, 16)
	if _, err = io.ReadFull(rand.Reader, salt); chk.E(err) {
		return
	}
	var cek, nonce []byte
	if cek, nonce, err = deriveRecordKeys(ikm, salt); chk.E(err) {
		return
	}
	var block cipher.Block
	if block, err = aes.NewCipher(cek); chk.E(err) {
		return
	}
	var gcm cipher.AEAD
	if gcm, err = cipher.NewGCM(block); chk.E(err) {
		return
	}
	record := make([]byte, 0, len(payload)+1)
	record = append(record, payload...)
	record = append(record, 0x02)
	ciphertext := gcm.Seal(nil, nonce, record, nil)
	body = make([]byte, 0, 16+4+1+len(asPublic)+len(ciphertext))
	body = append(body, salt...)
	body = binary.BigEndian.AppendUint32(body, recordSize)
	body = append(body, byte(len(asPublic)))
	body = append(body, asPublic...)
	body = append(body, ciphertext...)
	return
}

// deriveRecordKeys expands the input keying material and salt into the
// content encryption key and nonce of RFC 8188.
func deriveRecordKeys(ikm, salt []byte) (cek, nonce []byte, err error) {
	cek = make([]byte, 16)
	if _, err = io.ReadFull(
		hkdf.New(sha256.New, ikm, salt, []byte(infoCEK)), cek,
	); chk.E(err) {
		return
	}
	nonce = make([]byte, 12)
	if _, err = io.ReadFull(
		hkdf.New(sha256.New, ikm, salt, []byte(infoNonce)), nonce,
	); chk.E(err) {
		return
	}
	return
}
