package ledger

import "strings"

var (
	profilePrefix   = []byte("ledger/profile/")
	depositPrefix   = []byte("ledger/deposit/")
	assetPrefix     = []byte("ledger/asset/")
	processedPrefix = []byte("ledger/processed/")
)

func profileKey(user [20]byte) []byte {
	return append(append([]byte(nil), profilePrefix...), user[:]...)
}

func depositKey(user [20]byte, asset string) []byte {
	key := append(append([]byte(nil), depositPrefix...), user[:]...)
	key = append(key, '/')
	return append(key, strings.ToUpper(strings.TrimSpace(asset))...)
}

func assetKey(asset string) []byte {
	return append(append([]byte(nil), assetPrefix...), strings.ToUpper(strings.TrimSpace(asset))...)
}

func processedKey(msgID string) []byte {
	return append(append([]byte(nil), processedPrefix...), strings.TrimSpace(msgID)...)
}
