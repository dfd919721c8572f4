// Package designer computes circuit designs for an installation request. The
// computation is deterministic for identical inputs, which is what makes its
// results cacheable.
package designer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	api "github.com/tradewatt/designer/api/v1alpha1"
)

const sqrt3 = 1.7320508075688772

// StepFunc receives progress notifications while a design is computed.
// Progress is 0-100, step a short human-readable label.
type StepFunc func(progress int, step string)

type step struct {
	progress int
	label    string
}

var steps = []step{
	{10, "validating circuits"},
	{25, "calculating design currents"},
	{45, "sizing protective devices"},
	{65, "sizing cables"},
	{80, "checking voltage drop"},
	{95, "verifying earth fault loop impedance"},
}

type Engine struct {
	log *zap.SugaredLogger
}

func NewEngine() *Engine {
	return &Engine{log: zap.S().Named("designer")}
}

// Design computes the full design for a request. The step callback is invoked
// as each stage begins; pass nil when progress is not interesting. The context
// is checked between stages so a cancelled job stops promptly.
func (e *Engine) Design(ctx context.Context, req api.DesignRequest, notify StepFunc) (*api.Design, error) {
	advance := func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if notify != nil {
			notify(steps[i].progress, steps[i].label)
		}
		return nil
	}

	if err := advance(0); err != nil {
		return nil, err
	}
	for i, c := range req.Circuits {
		if c.PowerW <= 0 {
			return nil, fmt.Errorf("circuit %d: power must be positive", i)
		}
		if c.LengthM <= 0 {
			return nil, fmt.Errorf("circuit %d: length must be positive", i)
		}
	}

	if err := advance(1); err != nil {
		return nil, err
	}
	currents := make([]float64, len(req.Circuits))
	for i, c := range req.Circuits {
		currents[i] = designCurrent(c)
	}

	if err := advance(2); err != nil {
		return nil, err
	}
	circuits := make([]api.CircuitDesign, len(req.Circuits))
	for i, c := range req.Circuits {
		rating, ok := deviceRating(currents[i])
		if !ok {
			return nil, fmt.Errorf("circuit %d (%s): design current %.1f A exceeds the largest device rating", i, c.LoadType, currents[i])
		}
		circuits[i] = api.CircuitDesign{
			LoadType:       c.LoadType,
			DesignCurrentA: round1(currents[i]),
			DeviceRatingA:  rating,
			DeviceType:     deviceType(c.LoadType),
		}
	}

	if err := advance(3); err != nil {
		return nil, err
	}
	specs := make([]cableSpec, len(req.Circuits))
	for i := range req.Circuits {
		spec, ok := cableForRating(circuits[i].DeviceRatingA)
		if !ok {
			return nil, fmt.Errorf("circuit %d (%s): no cable carries %d A", i, req.Circuits[i].LoadType, circuits[i].DeviceRatingA)
		}
		specs[i] = spec
	}

	if err := advance(4); err != nil {
		return nil, err
	}
	for i, c := range req.Circuits {
		spec, drop := sizeForVoltageDrop(specs[i], currents[i], c)
		specs[i] = spec
		circuits[i].CableCSAmm2 = spec.csa
		circuits[i].CpcCSAmm2 = spec.cpc
		circuits[i].VoltageDropV = round2(drop)
		circuits[i].VoltageDropPct = round2(drop / float64(c.VoltageV) * 100)
		if limit := voltageDropLimit(c); drop > float64(c.VoltageV)*limit {
			circuits[i].Warnings = append(circuits[i].Warnings,
				fmt.Sprintf("voltage drop %.1f V exceeds %.0f%% of nominal even at %.0f mm2", drop, limit*100, spec.csa))
		}
	}

	if err := advance(5); err != nil {
		return nil, err
	}
	for i, c := range req.Circuits {
		zs := req.Supply.Ze + loopResistance(specs[i], c.LengthM)
		maxZs := maxLoopImpedance(circuits[i].DeviceRatingA)
		circuits[i].ZsOhms = round3(zs)
		circuits[i].MaxZsOhms = round3(maxZs)
		if zs > maxZs {
			circuits[i].Warnings = append(circuits[i].Warnings,
				fmt.Sprintf("earth fault loop impedance %.2f ohm exceeds the %.2f ohm maximum for a %d A device", zs, maxZs, circuits[i].DeviceRatingA))
		}
		circuits[i].Compliant = len(circuits[i].Warnings) == 0
	}

	total := 0.0
	for _, ib := range currents {
		total += ib
	}

	design := &api.Design{
		Circuits:      circuits,
		TotalDemandA:  round1(total),
		SupplyComment: supplyComment(req.Supply),
		GeneratedAt:   time.Now().UTC(),
	}
	e.log.Debugw("design computed", "circuits", len(circuits), "total_demand_a", design.TotalDemandA)
	return design, nil
}

// designCurrent is Ib at unity power factor.
func designCurrent(c api.CircuitInput) float64 {
	if strings.EqualFold(c.Phases, "three") {
		return c.PowerW / (sqrt3 * float64(c.VoltageV))
	}
	return c.PowerW / float64(c.VoltageV)
}

func deviceRating(ib float64) (int, bool) {
	for _, r := range deviceRatings {
		if float64(r) >= ib {
			return r, true
		}
	}
	return 0, false
}

func deviceType(loadType string) string {
	if t, ok := deviceTypes[strings.ToLower(strings.TrimSpace(loadType))]; ok {
		return t
	}
	return defaultDeviceType
}

func cableForRating(rating int) (cableSpec, bool) {
	for _, spec := range cables {
		if spec.capacity >= float64(rating) {
			return spec, true
		}
	}
	return cableSpec{}, false
}

// sizeForVoltageDrop bumps the CSA until the drop is within limit or the
// table runs out, returning the chosen spec and its drop.
func sizeForVoltageDrop(spec cableSpec, ib float64, c api.CircuitInput) (cableSpec, float64) {
	limit := float64(c.VoltageV) * voltageDropLimit(c)
	drop := voltageDrop(spec, ib, c.LengthM)
	for drop > limit {
		next, ok := nextCable(spec)
		if !ok {
			break
		}
		spec = next
		drop = voltageDrop(spec, ib, c.LengthM)
	}
	return spec, drop
}

func voltageDrop(spec cableSpec, ib, lengthM float64) float64 {
	return spec.mvPerAm * ib * lengthM / 1000
}

func voltageDropLimit(c api.CircuitInput) float64 {
	if strings.EqualFold(strings.TrimSpace(c.LoadType), "lighting") {
		return voltageDropLimitLighting
	}
	return voltageDropLimitOther
}

func nextCable(spec cableSpec) (cableSpec, bool) {
	for i, s := range cables {
		if s.csa == spec.csa && i+1 < len(cables) {
			return cables[i+1], true
		}
	}
	return cableSpec{}, false
}

// loopResistance is (R1+R2)*L corrected to operating temperature, in ohm.
func loopResistance(spec cableSpec, lengthM float64) float64 {
	r := conductorResistance[spec.csa] + conductorResistance[spec.cpc]
	return r * resistanceTempFactor * lengthM / 1000
}

// maxLoopImpedance is the 0.4 s disconnection limit for a type B device,
// Uo / (5 * In) at 230 V nominal.
func maxLoopImpedance(rating int) float64 {
	return 230.0 / (5.0 * float64(rating))
}

func supplyComment(s api.SupplySpec) string {
	switch strings.ToUpper(strings.TrimSpace(s.Earthing)) {
	case "TT":
		return "TT system: 30 mA RCD protection required on all circuits, verify earth electrode resistance"
	case "TN-S":
		return "TN-S system: confirm the supply earth is continuous back to the transformer"
	default:
		return "TN-C-S system: main protective bonding to extraneous conductive parts required"
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
