package prediction

import "strings"

// SplitBarcode returns the directory path of a product's images on the static
// server: codes longer than 9 digits are split 3/3/3/rest, shorter codes are
// used as they are.
func SplitBarcode(code string) string {
	if len(code) <= 9 {
		return code
	}
	return strings.Join([]string{code[0:3], code[3:6], code[6:9], code[9:]}, "/")
}
