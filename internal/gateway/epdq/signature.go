package epdq

import (
	"crypto/sha512"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/DanielPopoola/pay-connector/internal/gateway"
)

const signatureKey = "SHASIGN"

// shaOutParameters are the only response fields the gateway includes when
// signing what it sends us.
var shaOutParameters = map[string]struct{}{
	"AAVADDRESS": {}, "AAVCHECK": {}, "AAVZIP": {}, "ACCEPTANCE": {}, "ALIAS": {},
	"AMOUNT": {}, "BIN": {}, "BRAND": {}, "CARDNO": {}, "CCCTY": {}, "CN": {},
	"COMPLUS": {}, "CREATION_STATUS": {}, "CURRENCY": {}, "CVCCHECK": {},
	"DCC_COMMPERCENTAGE": {}, "DCC_CONVAMOUNT": {}, "DCC_CONVCCY": {},
	"DCC_EXCHRATE": {}, "DCC_EXCHRATESOURCE": {}, "DCC_EXCHRATETS": {},
	"DCC_INDICATOR": {}, "DCC_MARGINPERCENTAGE": {}, "DCC_VALIDHOURS": {},
	"DIGESTCARDNO": {}, "ECI": {}, "ED": {}, "ENCCARDNO": {}, "FXAMOUNT": {},
	"FXCURRENCY": {}, "IP": {}, "IPCTY": {}, "NBREMAILUSAGE": {}, "NBRIPUSAGE": {},
	"NBRIPUSAGE_ALLTX": {}, "NBRUSAGE": {}, "NCERROR": {}, "NCERRORCARDNO": {},
	"NCERRORCN": {}, "NCERRORCVC": {}, "NCERRORED": {}, "ORDERID": {}, "PAYID": {},
	"PAYIDSUB": {}, "PM": {}, "SCO_CATEGORY": {}, "SCORING": {}, "STATUS": {},
	"SUBBRAND": {}, "SUBSCRIPTION_ID": {}, "TRXDATE": {}, "VC": {},
}

// sign computes the SHA-512 signature over the non-empty fields: each becomes
// KEY=value followed by the passphrase, in order of upper-cased key.
func sign(fields gateway.Fields, passphrase string, include func(key string) bool) string {
	type pair struct{ key, value string }
	pairs := make([]pair, 0, len(fields))
	for _, f := range fields {
		key := strings.ToUpper(f.Key)
		if f.Value == "" || key == signatureKey || !include(key) {
			continue
		}
		pairs = append(pairs, pair{key: key, value: f.Value})
	}
	slices.SortStableFunc(pairs, func(a, b pair) int {
		return strings.Compare(a.key, b.key)
	})

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
		b.WriteString(passphrase)
	}
	sum := sha512.Sum512([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func signIn(fields gateway.Fields, passphrase string) string {
	return sign(fields, passphrase, func(string) bool { return true })
}

func signOut(fields gateway.Fields, passphrase string) string {
	return sign(fields, passphrase, func(key string) bool {
		_, ok := shaOutParameters[key]
		return ok
	})
}
