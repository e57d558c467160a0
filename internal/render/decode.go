package render

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// Source encodings reported by Decode.
const (
	EncodingUTF8 = "utf-8"
	EncodingGBK  = "gbk"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw page bytes to UTF-8 text. Valid UTF-8 is used as is
// (minus a leading BOM); anything else gets exactly one GBK attempt.
func Decode(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM)), EncodingUTF8, nil
	}
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("render: decode gbk: %w", err)
	}
	return string(out), EncodingGBK, nil
}
