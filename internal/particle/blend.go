package particle

import (
	"fmt"
	"strings"
)

// BlendFactor is a source or destination blend factor.
type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstColor
	BlendOneMinusDstColor
	BlendDstAlpha
	BlendOneMinusDstAlpha
)

var blendNames = [...]string{
	BlendZero:             "zero",
	BlendOne:              "one",
	BlendSrcColor:         "src_color",
	BlendOneMinusSrcColor: "one_minus_src_color",
	BlendSrcAlpha:         "src_alpha",
	BlendOneMinusSrcAlpha: "one_minus_src_alpha",
	BlendDstColor:         "dst_color",
	BlendOneMinusDstColor: "one_minus_dst_color",
	BlendDstAlpha:         "dst_alpha",
	BlendOneMinusDstAlpha: "one_minus_dst_alpha",
}

func (f BlendFactor) String() string {
	if int(f) < len(blendNames) {
		return blendNames[f]
	}
	return fmt.Sprintf("BlendFactor(%d)", int(f))
}

// ParseBlendFactor accepts the snake_case names used in definition files.
func ParseBlendFactor(s string) (BlendFactor, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range blendNames {
		if n == s {
			return BlendFactor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown blend factor %q", s)
}

// BlendFunc is the source/destination pair handed to the renderer.
type BlendFunc struct {
	Src BlendFactor
	Dst BlendFactor
}

var (
	BlendDisable               = BlendFunc{BlendOne, BlendZero}
	BlendAlphaPremultiplied    = BlendFunc{BlendOne, BlendOneMinusSrcAlpha}
	BlendAlphaNonPremultiplied = BlendFunc{BlendSrcAlpha, BlendOneMinusSrcAlpha}
	BlendAdditive              = BlendFunc{BlendSrcAlpha, BlendOne}
)

// ParseBlendPreset resolves a named preset ("alpha", "premultiplied",
// "additive", "disable").
func ParseBlendPreset(s string) (BlendFunc, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "alpha":
		return BlendAlphaNonPremultiplied, nil
	case "premultiplied":
		return BlendAlphaPremultiplied, nil
	case "additive":
		return BlendAdditive, nil
	case "disable", "opaque":
		return BlendDisable, nil
	}
	return BlendFunc{}, fmt.Errorf("unknown blend preset %q", s)
}
