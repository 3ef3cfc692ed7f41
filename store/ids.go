package store

import (
	"sync"

	"github.com/teris-io/shortid"
)

// uuidABC mirrors the teacher's own alphabet in cmn/shortid.go, used here
// to generate multipart upload ids instead of cluster daemon ids.
const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var (
	sidOnce sync.Once
	sid     *shortid.Shortid
)

func initShortID() {
	sidOnce.Do(func() {
		sid = shortid.MustNew(4 /*worker*/, uuidABC, 0)
	})
}

// NewMultipartID generates a short, human-readable multipart upload id.
func NewMultipartID() string {
	initShortID()
	return sid.MustGenerate()
}
