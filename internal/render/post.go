package render

import "math"

// Power configures the current limiter.
//   - WhiteCap: per pixel cap on R+G+B (3 means no cap)
//   - ChanMA: mA drawn by one channel at full scale (WS2812 ≈ 20)
//   - BudgetMA: global budget; 0 disables the budget stage
//   - Knee: fraction of the budget where soft limiting begins
type Power struct {
	WhiteCap float64 `yaml:"white_cap" toml:"white_cap" json:"white_cap"`
	ChanMA   float64 `yaml:"led_chan_ma" toml:"led_chan_ma" json:"led_chan_ma"`
	BudgetMA float64 `yaml:"budget_ma" toml:"budget_ma" json:"budget_ma"`
	Knee     float64 `yaml:"knee" toml:"knee" json:"knee"`
}

// Levels are the global corrections applied to the composited frame.
type Levels struct {
	Brightness float64
	Gamma      float64
}

// PostPipeline groups the correction stages; both are optional.
type PostPipeline struct {
	Levels  func([]Color, Levels)
	Limiter func([]Color, Power)
}

// DefaultPost applies levels then the limiter.
func DefaultPost() PostPipeline {
	return PostPipeline{Levels: ApplyLevels, Limiter: LimitPower}
}

// Apply runs every configured stage and clamps the result to [0,1].
func (p PostPipeline) Apply(buf []Color, l Levels, pw Power) {
	if p.Levels != nil {
		p.Levels(buf, l)
	}
	if p.Limiter != nil {
		p.Limiter(buf, pw)
	}
	for i, c := range buf {
		buf[i] = Color{clamp01(c.R), clamp01(c.G), clamp01(c.B), clamp01(c.A)}
	}
}

// ApplyLevels scales color channels by Brightness and then raises them to
// Gamma. A gamma of 0 or 1 is a no-op.
func ApplyLevels(buf []Color, l Levels) {
	b := float32(l.Brightness)
	g := l.Gamma
	for i := range buf {
		r, gg, bl := buf[i].R*b, buf[i].G*b, buf[i].B*b
		if g > 0 && g != 1 {
			r = powf(clamp01(r), g)
			gg = powf(clamp01(gg), g)
			bl = powf(clamp01(bl), g)
		}
		buf[i].R, buf[i].G, buf[i].B = r, gg, bl
	}
}

// LimitPower caps each pixel's channel sum at WhiteCap and then keeps the
// modelled draw of the frame under BudgetMA. Past Knee*BudgetMA the draw is
// soft-clipped so it approaches the budget without reaching it.
func LimitPower(buf []Color, p Power) {
	p = p.normalized()
	capSum := float32(p.WhiteCap)
	for i := range buf {
		if sum := buf[i].R + buf[i].G + buf[i].B; sum > capSum {
			scaleRGB(buf[i:i+1], capSum/sum)
		}
	}
	if p.BudgetMA <= 0 {
		return
	}
	if s := p.budgetScale(p.Draw(buf)); s < 1 {
		scaleRGB(buf, float32(s))
	}
}

func (p Power) normalized() Power {
	if p.WhiteCap <= 0 {
		p.WhiteCap = 3
	}
	if p.ChanMA <= 0 {
		p.ChanMA = 20
	}
	if p.Knee <= 0 || p.Knee >= 1 {
		p.Knee = 0.9
	}
	return p
}

// budgetScale returns the factor for a frame drawing load mA.
func (p Power) budgetScale(load float64) float64 {
	over := load / p.BudgetMA
	if over <= p.Knee {
		return 1
	}
	soft := 1 - p.Knee
	target := p.Knee + soft*math.Tanh((over-p.Knee)/soft)
	return target / over
}

// Draw is the modelled current of buf in mA, using ChanMA per channel.
func (p Power) Draw(buf []Color) float64 {
	ma := p.ChanMA
	if ma <= 0 {
		ma = 20
	}
	var sum float64
	for _, c := range buf {
		sum += float64(c.R) + float64(c.G) + float64(c.B)
	}
	return sum * ma
}

func scaleRGB(buf []Color, k float32) {
	for i := range buf {
		buf[i].R, buf[i].G, buf[i].B = buf[i].R*k, buf[i].G*k, buf[i].B*k
	}
}

func clamp01(x float32) float32 {
	return min(max(x, 0), 1)
}

func powf(x float32, p float64) float32 {
	return float32(math.Pow(float64(x), p))
}
