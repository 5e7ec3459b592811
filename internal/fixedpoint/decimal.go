// Package fixedpoint 提供定点十进制数值类型，用于价格、数量与盈亏计算，
// 避免二进制浮点的累积误差。
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// DefaultScale 价格与数量的默认小数位数
const DefaultScale int32 = 8

// ErrDivisionByZero 除数为零
var ErrDivisionByZero = errors.New("fixedpoint: division by zero")

var (
	maxInt64 = big.NewInt(int64(^uint64(0) >> 1))
	minInt64 = new(big.Int).Neg(new(big.Int).Add(maxInt64, big.NewInt(1)))
)

// Decimal 定点十进制数，取值为 mantissa × 10^(-scale)。
// 零值为 0（scale 0），可直接使用。
// 超出 int64 尾数表示范围的运算结果视为编程错误，直接 panic；
// 交易域内的价格与数量在默认 8 位小数下远低于该上限。
type Decimal struct {
	mantissa int64
	scale    int32
}

// New 从尾数与小数位数构造定点数
func New(mantissa int64, scale int32) Decimal {
	if scale < 0 {
		scale = 0
	}
	return Decimal{mantissa: mantissa, scale: scale}
}

// Zero 返回指定小数位数的零值
func Zero(scale int32) Decimal {
	return New(0, scale)
}

// FromInt 从整数构造定点数（scale 0）
func FromInt(v int64) Decimal {
	return Decimal{mantissa: v}
}

// FromString 解析十进制字符串，如 "123.45"、"-0.00000001"。
// 小数位数取自字符串本身。
func FromString(s string) (Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Decimal{}, fmt.Errorf("fixedpoint: empty decimal string")
	}

	negative := false
	switch trimmed[0] {
	case '+':
		trimmed = trimmed[1:]
	case '-':
		negative = true
		trimmed = trimmed[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(trimmed, ".")
	if intPart == "" && fracPart == "" {
		return Decimal{}, fmt.Errorf("fixedpoint: invalid decimal %q", s)
	}
	if intPart == "" {
		intPart = "0"
	}
	if hasFrac && fracPart == "" {
		return Decimal{}, fmt.Errorf("fixedpoint: invalid decimal %q", s)
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return Decimal{}, fmt.Errorf("fixedpoint: invalid decimal %q", s)
		}
	}

	mantissa, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("fixedpoint: invalid decimal %q", s)
	}
	if negative {
		mantissa.Neg(mantissa)
	}
	if !mantissa.IsInt64() {
		return Decimal{}, fmt.Errorf("fixedpoint: decimal %q out of range", s)
	}

	return Decimal{mantissa: mantissa.Int64(), scale: int32(len(fracPart))}, nil
}

// MustFromString 解析十进制字符串，解析失败则 panic。仅用于常量与测试。
func MustFromString(s string) Decimal {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromFloat 从浮点数构造定点数，按指定小数位数就近舍入。
// 仅用于外部边界的有损输入，内部计算不经过浮点。
func FromFloat(v float64, scale int32) (Decimal, error) {
	if scale < 0 {
		scale = 0
	}
	return FromString(strconv.FormatFloat(v, 'f', int(scale), 64))
}

// Mantissa 返回尾数
func (d Decimal) Mantissa() int64 { return d.mantissa }

// Scale 返回小数位数
func (d Decimal) Scale() int32 { return d.scale }

// IsZero 是否为零
func (d Decimal) IsZero() bool { return d.mantissa == 0 }

// IsPositive 是否大于零
func (d Decimal) IsPositive() bool { return d.mantissa > 0 }

// IsNegative 是否小于零
func (d Decimal) IsNegative() bool { return d.mantissa < 0 }

// Abs 返回绝对值
func (d Decimal) Abs() Decimal {
	if d.mantissa < 0 {
		return d.Neg()
	}
	return d
}

// Neg 返回相反数
func (d Decimal) Neg() Decimal {
	return Decimal{mantissa: mustInt64(new(big.Int).Neg(big.NewInt(d.mantissa))), scale: d.scale}
}

// Rescale 调整小数位数。升位为精确的 10 的幂整数乘法；
// 降位向零截断，会丢弃低位。
func (d Decimal) Rescale(scale int32) Decimal {
	if scale < 0 {
		scale = 0
	}
	if scale == d.scale {
		return d
	}
	m := big.NewInt(d.mantissa)
	if scale > d.scale {
		m.Mul(m, pow10(scale-d.scale))
	} else {
		m.Quo(m, pow10(d.scale-scale))
	}
	return Decimal{mantissa: mustInt64(m), scale: scale}
}

// Add 加法，结果小数位数为两操作数中的较大者
func (d Decimal) Add(other Decimal) Decimal {
	a, b, scale := align(d, other)
	return Decimal{mantissa: mustInt64(new(big.Int).Add(a, b)), scale: scale}
}

// Sub 减法，结果小数位数为两操作数中的较大者
func (d Decimal) Sub(other Decimal) Decimal {
	a, b, scale := align(d, other)
	return Decimal{mantissa: mustInt64(new(big.Int).Sub(a, b)), scale: scale}
}

// Mul 乘法，结果按两操作数中较大的小数位数就近舍入（远离零）
func (d Decimal) Mul(other Decimal) Decimal {
	scale := maxScale(d.scale, other.scale)
	// 全精度乘积的小数位数为 d.scale + other.scale，再舍入回目标位数
	product := new(big.Int).Mul(big.NewInt(d.mantissa), big.NewInt(other.mantissa))
	return Decimal{mantissa: mustInt64(divRound(product, pow10(d.scale+other.scale-scale))), scale: scale}
}

// Div 除法，结果按两操作数中较大的小数位数就近舍入（远离零）。
// 除数为零返回 ErrDivisionByZero。
func (d Decimal) Div(other Decimal) (Decimal, error) {
	if other.mantissa == 0 {
		return Decimal{}, ErrDivisionByZero
	}
	scale := maxScale(d.scale, other.scale)
	// (a×10^-sa) / (b×10^-sb) = a×10^(scale+sb-sa) / b × 10^-scale
	numerator := new(big.Int).Mul(big.NewInt(d.mantissa), pow10(scale+other.scale-d.scale))
	return Decimal{mantissa: mustInt64(divRound(numerator, big.NewInt(other.mantissa))), scale: scale}, nil
}

// Cmp 比较两数大小，先对齐小数位数：-1 小于，0 等于，1 大于
func (d Decimal) Cmp(other Decimal) int {
	a, b, _ := align(d, other)
	return a.Cmp(b)
}

// Equal 数值相等（与小数位数表示无关）
func (d Decimal) Equal(other Decimal) bool { return d.Cmp(other) == 0 }

// LessThan 小于
func (d Decimal) LessThan(other Decimal) bool { return d.Cmp(other) < 0 }

// GreaterThan 大于
func (d Decimal) GreaterThan(other Decimal) bool { return d.Cmp(other) > 0 }

// Min 返回两数中较小者
func Min(a, b Decimal) Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max 返回两数中较大者
func Max(a, b Decimal) Decimal {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// String 输出十进制字符串，去除小数部分的尾随零
func (d Decimal) String() string {
	if d.scale == 0 {
		return strconv.FormatInt(d.mantissa, 10)
	}

	digits := strconv.FormatInt(d.mantissa, 10)
	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}
	if int32(len(digits)) <= d.scale {
		digits = strings.Repeat("0", int(d.scale)-len(digits)+1) + digits
	}

	split := len(digits) - int(d.scale)
	intPart, fracPart := digits[:split], digits[split:]
	fracPart = strings.TrimRight(fracPart, "0")

	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}
	sb.WriteString(intPart)
	if fracPart != "" {
		sb.WriteByte('.')
		sb.WriteString(fracPart)
	}
	return sb.String()
}

// Float64 有损转换为浮点数，仅用于展示与指标上报
func (d Decimal) Float64() float64 {
	f, _ := strconv.ParseFloat(d.String(), 64)
	return f
}

// MarshalJSON 序列化为 JSON 字符串，保留精确的十进制表示
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON 从 JSON 字符串或数字字面量反序列化
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// align 将两操作数对齐到较大的小数位数
func align(a, b Decimal) (*big.Int, *big.Int, int32) {
	scale := maxScale(a.scale, b.scale)
	ma := big.NewInt(a.mantissa)
	mb := big.NewInt(b.mantissa)
	if a.scale < scale {
		ma.Mul(ma, pow10(scale-a.scale))
	}
	if b.scale < scale {
		mb.Mul(mb, pow10(scale-b.scale))
	}
	return ma, mb, scale
}

// divRound 整数除法，就近舍入，half 远离零
func divRound(numerator, divisor *big.Int) *big.Int {
	quotient, remainder := new(big.Int).QuoRem(numerator, divisor, new(big.Int))
	if remainder.Sign() == 0 {
		return quotient
	}
	doubled := new(big.Int).Abs(remainder)
	doubled.Lsh(doubled, 1)
	if doubled.CmpAbs(divisor) >= 0 {
		if (numerator.Sign() < 0) != (divisor.Sign() < 0) {
			quotient.Sub(quotient, big.NewInt(1))
		} else {
			quotient.Add(quotient, big.NewInt(1))
		}
	}
	return quotient
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func maxScale(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func mustInt64(v *big.Int) int64 {
	if v.Cmp(maxInt64) > 0 || v.Cmp(minInt64) < 0 {
		panic(fmt.Sprintf("fixedpoint: mantissa overflow: %s", v.String()))
	}
	return v.Int64()
}
