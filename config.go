// config.go - AFS and encoder configuration, presets, and validation
//
// License: GPLv3 or later

package afscore

// AFSConfig enumerates the Auto Field Shift analyzer options (spec.md §6).
type AFSConfig struct {
	Clip                                           Clip
	MethodSwitch                                   int // [0,256]
	CoeffShift                                      int // [0,256]
	ThreShift, ThreDeint, ThreYMotion, ThreCMotion int // [0,1024]
	Analyze                                        int // [0,5]
	Shift, Drop, Smooth, Force24, Tune             bool
	TbOrder                                        int // 0=bff, 1=tff
	RFF                                            bool
	Timecode                                       bool
	Log                                             bool
	ReverseShift                                    [4]bool
}

// DefaultAFSConfig returns the "default" preset.
func DefaultAFSConfig() AFSConfig {
	var c AFSConfig
	c.ApplyPreset("default")
	return c
}

// ApplyPreset sets the named preset's vector of values (spec.md §6),
// grounded verbatim on NVEncFilterAfs::set_preset's per-preset tables
// (_examples/original_source/NVEncCore/NVEncFilterAfs.cpp); only the
// "default" case's FILTER_DEFAULT_AFS_* macro values are unrecoverable
// from this pack and remain an acknowledged open question (see
// DESIGN.md). tb_order and rff are this module's own stream-level
// settings, not part of set_preset's vector: every preset sets TbOrder to 1
// and RFF to true ("double" sets RFF to false). ApplyPreset replaces the
// whole struct, so Clip, Tune, Timecode, Log and ReverseShift are reset to
// their zero values. Unknown names leave c unchanged and return false.
func (c *AFSConfig) ApplyPreset(name string) bool {
	switch name {
	case "default":
		*c = AFSConfig{MethodSwitch: 64, CoeffShift: 128, ThreShift: 428, ThreDeint: 48,
			ThreYMotion: 112, ThreCMotion: 224, Analyze: 3, Shift: true, Drop: true,
			Smooth: true, TbOrder: 1, RFF: true}
	case "triple":
		*c = AFSConfig{MethodSwitch: 0, CoeffShift: 192, ThreShift: 128, ThreDeint: 48,
			ThreYMotion: 112, ThreCMotion: 224, Analyze: 1, Shift: false, Drop: false,
			Smooth: false, TbOrder: 1, RFF: true}
	case "double":
		*c = AFSConfig{MethodSwitch: 0, CoeffShift: 192, ThreShift: 128, ThreDeint: 48,
			ThreYMotion: 112, ThreCMotion: 224, Analyze: 2, Shift: true, Drop: true,
			Smooth: true, TbOrder: 1, RFF: false}
	case "anime":
		*c = AFSConfig{MethodSwitch: 64, CoeffShift: 128, ThreShift: 128, ThreDeint: 48,
			ThreYMotion: 112, ThreCMotion: 224, Analyze: 3, Shift: true, Drop: true,
			Smooth: true, TbOrder: 1, RFF: true}
	case "min_afterimage":
		*c = AFSConfig{MethodSwitch: 0, CoeffShift: 192, ThreShift: 128, ThreDeint: 48,
			ThreYMotion: 112, ThreCMotion: 224, Analyze: 4, Shift: true, Drop: true,
			Smooth: true, TbOrder: 1, RFF: true}
	case "force24_sd":
		*c = AFSConfig{MethodSwitch: 64, CoeffShift: 128, ThreShift: 128, ThreDeint: 48,
			ThreYMotion: 112, ThreCMotion: 224, Analyze: 3, Shift: true, Drop: true,
			Smooth: false, Force24: true, TbOrder: 1, RFF: true}
	case "force24_hd":
		*c = AFSConfig{MethodSwitch: 92, CoeffShift: 192, ThreShift: 448, ThreDeint: 48,
			ThreYMotion: 112, ThreCMotion: 224, Analyze: 3, Shift: true, Drop: true,
			Smooth: true, Force24: true, TbOrder: 1, RFF: true}
	case "force30":
		*c = AFSConfig{MethodSwitch: 92, CoeffShift: 192, ThreShift: 448, ThreDeint: 48,
			ThreYMotion: 112, ThreCMotion: 224, Analyze: 3, Shift: false, Drop: false,
			Smooth: false, TbOrder: 1, RFF: true}
	default:
		return false
	}
	return true
}

// Validate runs the configuration's one-shot validation (spec.md §7:
// "Validation runs once at initialize() and rejects the whole job").
// Returns the first offending field as a KindUnsupportedParam.
func (c *AFSConfig) Validate(frameW, frameH int) error {
	const op = "AFSConfig.Validate"
	if c.Clip.Top < 0 || c.Clip.Bottom < 0 || c.Clip.Left < 0 || c.Clip.Right < 0 {
		return paramErr(op, "clip")
	}
	if c.Clip.Top+c.Clip.Bottom >= frameH || c.Clip.Left+c.Clip.Right >= frameW {
		return paramErr(op, "clip")
	}
	if c.MethodSwitch < 0 || c.MethodSwitch > 256 {
		return paramErr(op, "method_switch")
	}
	if c.CoeffShift < 0 || c.CoeffShift > 256 {
		return paramErr(op, "coeff_shift")
	}
	for _, v := range []int{c.ThreShift, c.ThreDeint, c.ThreYMotion, c.ThreCMotion} {
		if v < 0 || v > 1024 {
			return paramErr(op, "threshold")
		}
	}
	if c.Analyze < 0 || c.Analyze > 5 {
		return paramErr(op, "analyze")
	}
	if c.TbOrder != 0 && c.TbOrder != 1 {
		return paramErr(op, "tb_order")
	}
	if !c.Shift {
		c.Drop = false
		c.Smooth = false
	}
	return nil
}

// RateControl selects the encoder's bitrate strategy.
type RateControl int

const (
	RateControlCQP RateControl = iota
	RateControlVBR
	RateControlCBR
)

// Codec selects the target bitstream codec.
type Codec int

const (
	CodecH264 Codec = iota
	CodecHEVC
)

// EncoderConfig enumerates the backend encoder options (spec.md §6).
type EncoderConfig struct {
	Codec       Codec
	Preset      string
	RateControl RateControl
	QpI, QpP, QpB int
	AvgBitrate, MaxBitrate int // bits per second
	BluRay      bool
	Lossless    bool
	Yuv444      bool
	BFrames     int
	Gop         int
	VbvSize     int
	Level       int // x10, e.g. 41 == level 4.1
}

// Validate runs the encoder configuration's one-shot validation and applies
// the BluRay and Lossless derived-field rules from spec.md §6. Yuv444 derives
// nothing: EncoderConfig has no profile or chroma-format field to set.
func (c *EncoderConfig) Validate() error {
	const op = "EncoderConfig.Validate"
	if c.RateControl == RateControlCQP {
		for _, qp := range []int{c.QpI, c.QpP, c.QpB} {
			if qp < 0 || qp > 51 {
				return paramErr(op, "qp")
			}
		}
	}
	if c.RateControl == RateControlVBR && c.AvgBitrate <= 0 {
		return paramErr(op, "avg_bitrate")
	}

	if c.Lossless {
		if c.Codec != CodecH264 {
			return paramErr(op, "lossless requires h264")
		}
		c.RateControl = RateControlCQP
		c.QpI, c.QpP, c.QpB = 0, 0, 0
	}

	if c.Yuv444 {
		// EncoderConfig has no profile or chroma-format field, so no
		// derived field is set here.
	}

	if c.BluRay {
		if c.Level == 0 || c.Level > 41 {
			c.Level = 41
		}
		if c.MaxBitrate == 0 || c.MaxBitrate > 40_000_000 {
			c.MaxBitrate = 40_000_000
		}
		if c.VbvSize == 0 {
			c.VbvSize = c.MaxBitrate
		}
		if c.BFrames > 3 {
			c.BFrames = 3
		}
		maxGop := 30
		if c.Gop == 0 || c.Gop > maxGop {
			c.Gop = maxGop
		}
		if c.BFrames > 0 {
			c.Gop -= c.Gop % (c.BFrames + 1)
		}
	}
	return nil
}
