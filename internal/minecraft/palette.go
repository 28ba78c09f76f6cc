package minecraft

import "image/color"

// baseColors is the map color table as declared by the game, in map-color id
// order. The first entry is the "none" color; every index derived from it
// stays fully transparent.
var baseColors = [62][3]uint8{
	{0, 0, 0},       // none
	{127, 178, 56},  // grass
	{247, 233, 163}, // sand
	{199, 199, 199}, // wool
	{255, 0, 0},     // fire
	{160, 160, 255}, // ice
	{167, 167, 167}, // metal
	{0, 124, 0},     // plant
	{255, 255, 255}, // snow
	{164, 168, 184}, // clay
	{151, 109, 77},  // dirt
	{112, 112, 112}, // stone
	{64, 64, 255},   // water
	{143, 119, 72},  // wood
	{255, 252, 245}, // quartz
	{216, 127, 51},  // orange
	{178, 76, 216},  // magenta
	{102, 153, 216}, // light blue
	{229, 229, 51},  // yellow
	{126, 216, 61},  // lime
	{242, 127, 165}, // pink
	{76, 76, 76},    // gray
	{153, 153, 153}, // light gray
	{76, 127, 153},  // cyan
	{127, 63, 178},  // purple
	{51, 76, 178},   // blue
	{102, 76, 51},   // brown
	{102, 127, 51},  // green
	{153, 51, 51},   // red
	{25, 25, 25},    // black
	{250, 238, 77},  // gold
	{92, 219, 213},  // diamond
	{74, 128, 255},  // lapis
	{0, 217, 58},    // emerald
	{129, 86, 49},   // podzol
	{112, 2, 0},     // nether
	{209, 177, 161}, // white terracotta
	{159, 82, 36},   // orange terracotta
	{149, 87, 108},  // magenta terracotta
	{112, 108, 138}, // light blue terracotta
	{186, 133, 36},  // yellow terracotta
	{103, 117, 53},  // lime terracotta
	{160, 77, 78},   // pink terracotta
	{57, 41, 35},    // gray terracotta
	{135, 107, 98},  // light gray terracotta
	{87, 92, 92},    // cyan terracotta
	{122, 73, 88},   // purple terracotta
	{76, 62, 92},    // blue terracotta
	{76, 50, 35},    // brown terracotta
	{76, 82, 42},    // green terracotta
	{142, 60, 46},   // red terracotta
	{37, 22, 16},    // black terracotta
	{189, 48, 49},   // crimson nylium
	{148, 63, 97},   // crimson stem
	{92, 25, 29},    // crimson hyphae
	{22, 126, 134},  // warped nylium
	{58, 142, 140},  // warped stem
	{86, 44, 62},    // warped hyphae
	{20, 180, 133},  // warped wart block
	{100, 100, 100}, // deepslate
	{216, 175, 147}, // raw iron
}

// multipliers are the four brightness levels the game derives from each base
// color. The order is fixed: index bytes in map data are position-dependent.
var multipliers = [4]uint32{180, 220, 255, 135}

// mapColors is the expanded 248-entry palette indexed by the raw color byte.
// Indices beyond the table, like indices 0..3, are transparent.
var mapColors [256]color.NRGBA

func init() {
	for base := 1; base < len(baseColors); base++ {
		for m, mult := range multipliers {
			c := baseColors[base]
			mapColors[base*4+m] = color.NRGBA{
				R: uint8(uint32(c[0]) * mult / 255),
				G: uint8(uint32(c[1]) * mult / 255),
				B: uint8(uint32(c[2]) * mult / 255),
				A: 255,
			}
		}
	}
}

// MapColor returns the RGBA color for a raw map color byte.
func MapColor(index byte) color.NRGBA {
	return mapColors[index]
}
