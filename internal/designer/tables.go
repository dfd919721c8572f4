package designer

// Sizing data for copper twin-and-earth thermoplastic cable, clipped direct
// (BS 7671 appendix 4, method C, table 4D5 shapes). Values are the common
// on-site figures, not a full regulations reproduction.

// deviceRatings are the standard MCB/RCBO ratings, ascending.
var deviceRatings = []int{6, 10, 16, 20, 25, 32, 40, 45, 50, 63, 80, 100}

type cableSpec struct {
	csa      float64 // line conductor, mm2
	cpc      float64 // protective conductor of the matching twin-and-earth
	capacity float64 // current-carrying capacity Iz, A
	mvPerAm  float64 // voltage drop, mV per A per m
}

// cables is ordered by ascending CSA so the first fit is the smallest.
var cables = []cableSpec{
	{csa: 1.0, cpc: 1.0, capacity: 15, mvPerAm: 44},
	{csa: 1.5, cpc: 1.0, capacity: 19.5, mvPerAm: 29},
	{csa: 2.5, cpc: 1.5, capacity: 27, mvPerAm: 18},
	{csa: 4.0, cpc: 1.5, capacity: 36, mvPerAm: 11},
	{csa: 6.0, cpc: 2.5, capacity: 46, mvPerAm: 7.3},
	{csa: 10.0, cpc: 4.0, capacity: 63, mvPerAm: 4.4},
	{csa: 16.0, cpc: 6.0, capacity: 85, mvPerAm: 2.8},
	{csa: 25.0, cpc: 10.0, capacity: 112, mvPerAm: 1.8},
}

// conductorResistance is milliohm per metre at 20 C for copper, keyed by CSA.
var conductorResistance = map[float64]float64{
	1.0:  18.10,
	1.5:  12.10,
	2.5:  7.41,
	4.0:  4.61,
	6.0:  3.08,
	10.0: 1.83,
	16.0: 1.15,
	25.0: 0.727,
}

// resistanceTempFactor corrects conductor resistance to operating temperature.
const resistanceTempFactor = 1.2

// deviceTypes maps normalized load types to the protective device fitted.
// RCBOs where additional protection is the norm, plain type B otherwise.
var deviceTypes = map[string]string{
	"shower":     "RCBO Type B",
	"socket":     "RCBO Type B",
	"sockets":    "RCBO Type B",
	"ev_charger": "RCBO Type A",
	"lighting":   "MCB Type B",
	"cooker":     "MCB Type B",
	"oven":       "MCB Type B",
	"hob":        "MCB Type B",
	"immersion":  "MCB Type B",
	"heating":    "MCB Type B",
}

const defaultDeviceType = "MCB Type B"

// Voltage drop limits as a fraction of nominal, per BS 7671 appendix 12.
const (
	voltageDropLimitLighting = 0.03
	voltageDropLimitOther    = 0.05
)
