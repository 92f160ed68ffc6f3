package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

func generateOrderNo() string {
	now := time.Now().UTC().Format("20060102150405")
	return fmt.Sprintf("MP%s%s", now, randNumeric(6))
}

func generatePayoutNo() string {
	now := time.Now().UTC().Format("20060102")
	return fmt.Sprintf("PO%s%s", now, randNumeric(8))
}

func generateTransactionID() string {
	return "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
