package domain

// weatherDescriptions maps WMO weather interpretation codes to Spanish text.
var weatherDescriptions = map[int]string{
	0:  "Despejado",
	1:  "Mayormente despejado",
	2:  "Parcialmente nublado",
	3:  "Nublado",
	45: "Niebla",
	48: "Niebla con escarcha",
	51: "Llovizna ligera",
	53: "Llovizna moderada",
	55: "Llovizna intensa",
	56: "Llovizna helada ligera",
	57: "Llovizna helada intensa",
	61: "Lluvia ligera",
	63: "Lluvia moderada",
	65: "Lluvia intensa",
	66: "Lluvia helada ligera",
	67: "Lluvia helada intensa",
	71: "Nevada ligera",
	73: "Nevada moderada",
	75: "Nevada intensa",
	77: "Granos de nieve",
	80: "Chubascos ligeros",
	81: "Chubascos moderados",
	82: "Chubascos violentos",
	85: "Chubascos de nieve ligeros",
	86: "Chubascos de nieve intensos",
	95: "Tormenta",
	96: "Tormenta con granizo ligero",
	99: "Tormenta con granizo intenso",
}

// DescribeWeatherCode returns the Spanish description of a WMO code, or nil
// when the code is unknown.
func DescribeWeatherCode(code int) *string {
	d, ok := weatherDescriptions[code]
	if !ok {
		return nil
	}
	return &d
}
