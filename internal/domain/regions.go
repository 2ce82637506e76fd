package domain

// RegionUnknown is the sentinel stored when no province can be derived.
// The store column is non-null, so enrichment never returns an empty string.
const RegionUnknown = "unknown"

// provinceEntry maps a province name, as it appears in free text or in
// reverse-geocoded address components, to its official two-letter code.
type provinceEntry struct {
	name string // lowercase, matched case-insensitively as a substring
	code string
}

// provinceTable is pure data: extending coverage means adding rows here,
// never touching the matching logic. Order is the match order, so
// multi-word names that contain another entry's name must come first.
var provinceTable = []provinceEntry{
	{"barletta-andria-trani", "BT"},
	{"forlì-cesena", "FC"},
	{"forli-cesena", "FC"},
	{"massa-carrara", "MS"},
	{"monza e brianza", "MB"},
	{"pesaro e urbino", "PU"},
	{"reggio calabria", "RC"},
	{"reggio emilia", "RE"},
	{"verbano-cusio-ossola", "VB"},
	{"vibo valentia", "VV"},
	{"ascoli piceno", "AP"},
	{"sud sardegna", "SU"},
	{"la spezia", "SP"},
	{"l'aquila", "AQ"},

	{"agrigento", "AG"},
	{"alessandria", "AL"},
	{"ancona", "AN"},
	{"aosta", "AO"},
	{"arezzo", "AR"},
	{"asti", "AT"},
	{"avellino", "AV"},
	{"bari", "BA"},
	{"belluno", "BL"},
	{"benevento", "BN"},
	{"bergamo", "BG"},
	{"biella", "BI"},
	{"bologna", "BO"},
	{"bolzano", "BZ"},
	{"brescia", "BS"},
	{"brindisi", "BR"},
	{"cagliari", "CA"},
	{"caltanissetta", "CL"},
	{"campobasso", "CB"},
	{"caserta", "CE"},
	{"catania", "CT"},
	{"catanzaro", "CZ"},
	{"chieti", "CH"},
	{"como", "CO"},
	{"cosenza", "CS"},
	{"cremona", "CR"},
	{"crotone", "KR"},
	{"cuneo", "CN"},
	{"enna", "EN"},
	{"fermo", "FM"},
	{"ferrara", "FE"},
	{"firenze", "FI"},
	{"foggia", "FG"},
	{"frosinone", "FR"},
	{"genova", "GE"},
	{"gorizia", "GO"},
	{"grosseto", "GR"},
	{"imperia", "IM"},
	{"isernia", "IS"},
	{"latina", "LT"},
	{"lecce", "LE"},
	{"lecco", "LC"},
	{"livorno", "LI"},
	{"lodi", "LO"},
	{"lucca", "LU"},
	{"macerata", "MC"},
	{"mantova", "MN"},
	{"matera", "MT"},
	{"messina", "ME"},
	{"milano", "MI"},
	{"modena", "MO"},
	{"monza", "MB"},
	{"napoli", "NA"},
	{"novara", "NO"},
	{"nuoro", "NU"},
	{"oristano", "OR"},
	{"padova", "PD"},
	{"palermo", "PA"},
	{"parma", "PR"},
	{"pavia", "PV"},
	{"perugia", "PG"},
	{"pescara", "PE"},
	{"piacenza", "PC"},
	{"pisa", "PI"},
	{"pistoia", "PT"},
	{"pordenone", "PN"},
	{"potenza", "PZ"},
	{"prato", "PO"},
	{"ragusa", "RG"},
	{"ravenna", "RA"},
	{"rieti", "RI"},
	{"rimini", "RN"},
	{"roma", "RM"},
	{"rovigo", "RO"},
	{"salerno", "SA"},
	{"sassari", "SS"},
	{"savona", "SV"},
	{"siena", "SI"},
	{"siracusa", "SR"},
	{"sondrio", "SO"},
	{"taranto", "TA"},
	{"teramo", "TE"},
	{"terni", "TR"},
	{"torino", "TO"},
	{"trapani", "TP"},
	{"trento", "TN"},
	{"treviso", "TV"},
	{"trieste", "TS"},
	{"udine", "UD"},
	{"varese", "VA"},
	{"venezia", "VE"},
	{"vercelli", "VC"},
	{"verona", "VR"},
	{"vicenza", "VI"},
	{"viterbo", "VT"},
}
