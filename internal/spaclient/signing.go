package spaclient

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// NonceLength is the length of the per-request nonce
	NonceLength = 32

	nonceAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// Fixed client identification expected by the vendor API
	pushType       = "Android"
	acceptLanguage = "en"
	userAgent      = "okhttp/4.9.0"
	contentType    = "application/json; charset=UTF-8"
)

var nonceAlphabetSize = big.NewInt(int64(len(nonceAlphabet)))

// NewNonce returns a random NonceLength-character string drawn from [a-z0-9].
func NewNonce() (string, error) {
	b := make([]byte, NonceLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, nonceAlphabetSize)
		if err != nil {
			return "", err
		}
		b[i] = nonceAlphabet[n.Int64()]
	}
	return string(b), nil
}

// Sign computes the request signature: the uppercase hex MD5 digest of
// appID + appSecret + nonce + ts.
func Sign(appID, appSecret, nonce, ts string) string {
	sum := md5.Sum([]byte(appID + appSecret + nonce + ts))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// SignHeaders builds the authentication header set for one request.
// An empty token produces an unauthenticated (signed only) header set.
func SignHeaders(creds Credentials, token string, now time.Time) (http.Header, error) {
	nonce, err := NewNonce()
	if err != nil {
		return nil, err
	}
	ts := strconv.FormatInt(now.Unix(), 10)

	h := make(http.Header)
	h.Set("pushtype", pushType)
	h.Set("appid", creds.AppID)
	h.Set("nonce", nonce)
	h.Set("ts", ts)
	h.Set("accept-language", acceptLanguage)
	h.Set("sign", Sign(creds.AppID, creds.AppSecret, nonce, ts))
	h.Set("Connection", "Keep-Alive")
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", contentType)
	if token != "" {
		h.Set("Authorization", "token "+token)
	}
	return h, nil
}
