package near

import (
	"fmt"
	"math/big"
	"strings"
)

const NominationExp = 24

var nomination = new(big.Int).Exp(big.NewInt(10), big.NewInt(NominationExp), nil)

// ParseNearAmount converts a decimal NEAR amount into yoctoNEAR.
func ParseNearAmount(amount string) (*big.Int, error) {
	amount = strings.ReplaceAll(strings.TrimSpace(amount), ",", "")
	if len(amount) <= 0 {
		return nil, fmt.Errorf("missing amount")
	}

	whole, fraction, _ := strings.Cut(amount, ".")
	if len(whole) <= 0 {
		whole = "0"
	}
	if len(fraction) > NominationExp {
		return nil, fmt.Errorf("amount %s has more than %d fractional digits", amount, NominationExp)
	}
	if !isDigits(whole) || !isDigits(fraction) {
		return nil, fmt.Errorf("invalid amount %s", amount)
	}

	digits := whole + fraction + strings.Repeat("0", NominationExp-len(fraction))
	yocto, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %s", amount)
	}
	return yocto, nil
}

func MustParseNearAmount(amount string) *big.Int {
	yocto, err := ParseNearAmount(amount)
	if err != nil {
		panic(err)
	}
	return yocto
}

// ParseYoctoAmount parses a U128 amount as returned by contract views.
func ParseYoctoAmount(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if len(amount) <= 0 || !isDigits(amount) {
		return nil, fmt.Errorf("invalid yocto amount %q", amount)
	}
	yocto, _ := new(big.Int).SetString(amount, 10)
	return yocto, nil
}

// FormatNearAmount converts yoctoNEAR into a decimal NEAR amount with no
// trailing zeros.
func FormatNearAmount(yocto *big.Int) string {
	if yocto == nil {
		return "0"
	}

	sign := ""
	abs := new(big.Int).Set(yocto)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}

	whole, fraction := new(big.Int).QuoRem(abs, nomination, new(big.Int))
	if fraction.Sign() == 0 {
		return sign + whole.String()
	}

	fractionStr := fraction.String()
	fractionStr = strings.Repeat("0", NominationExp-len(fractionStr)) + fractionStr
	fractionStr = strings.TrimRight(fractionStr, "0")
	return fmt.Sprintf("%s%s.%s", sign, whole.String(), fractionStr)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
