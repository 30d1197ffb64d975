package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signalsfoundry/skymatrix/catalog"
)

// ParseSATCAT reads the CelesTrak satellite catalogue CSV and returns
// per-object metadata keyed by object name. Coded fields are translated
// through the catalogue's lookup tables into human-readable tags; empty
// or unknown codes contribute nothing. Later rows win when a name
// repeats.
func ParseSATCAT(r io.Reader) (map[string]catalog.Metadata, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("satcat header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	nameIdx, ok := col["OBJECT_NAME"]
	if !ok {
		return nil, fmt.Errorf("satcat header missing OBJECT_NAME")
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	meta := make(map[string]catalog.Metadata)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("satcat row: %w", err)
		}
		if nameIdx >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[nameIdx])
		if name == "" {
			continue
		}

		var m catalog.Metadata
		if desc, ok := objectTypes[field(row, "OBJECT_TYPE")]; ok {
			m.Tags = append(m.Tags, desc)
		}
		if desc, ok := opsStatuses[field(row, "OPS_STATUS_CODE")]; ok {
			m.Tags = append(m.Tags, desc)
		}
		if desc, ok := owners[field(row, "OWNER")]; ok {
			m.Tags = append(m.Tags, desc)
		}
		if desc, ok := launchSites[field(row, "LAUNCH_SITE")]; ok {
			m.Tags = append(m.Tags, desc)
		}
		if raw := field(row, "LAUNCH_DATE"); raw != "" {
			if d, err := time.Parse("2006-01-02", raw); err == nil {
				m.LaunchDate = d.UTC()
			}
		}
		meta[name] = m
	}
	return meta, nil
}

var objectTypes = map[string]string{
	"PAY": "Payload",
	"R/B": "Rocket body",
	"DEB": "Other debris",
	"UNK": "Unknown",
}

var opsStatuses = map[string]string{
	"+": "Operational",
	"-": "Nonoperational",
	"P": "Partially Operational",
	"B": "Backup/Standby",
	"S": "Spare",
	"X": "Extended Mission",
	"D": "Decayed",
	"?": "Unknown",
}

var owners = map[string]string{
	"AB":   "Arab Satellite Communications Organization",
	"ABS":  "Asia Broadcast Satellite",
	"AC":   "Asia Satellite Telecommunications Company (ASIASAT)",
	"ALG":  "Algeria",
	"ANG":  "Angola",
	"ARGN": "Argentina",
	"ARM":  "Republic of Armenia",
	"ASRA": "Austria",
	"AUS":  "Australia",
	"AZER": "Azerbaijan",
	"BEL":  "Belgium",
	"BELA": "Belarus",
	"BERM": "Bermuda",
	"BGD":  "Peoples Republic of Bangladesh",
	"BHUT": "Kingdom of Bhutan",
	"BOL":  "Bolivia",
	"BRAZ": "Brazil",
	"BUL":  "Bulgaria",
	"CA":   "Canada",
	"CHBZ": "China/Brazil",
	"CHTU": "China/Turkey",
	"CHLE": "Chile",
	"CIS":  "Commonwealth of Independent States (former USSR)",
	"COL":  "Colombia",
	"CRI":  "Republic of Costa Rica",
	"CZCH": "Czech Republic (former Czechoslovakia)",
	"DEN":  "Denmark",
	"DJI":  "Republic of Djibouti",
	"ECU":  "Ecuador",
	"EGYP": "Egypt",
	"ESA":  "European Space Agency",
	"ESRO": "European Space Research Organization",
	"EST":  "Estonia",
	"ETH":  "Ethiopia",
	"EUME": "European Organization for the Exploitation of Meteorological Satellites (EUMETSAT)",
	"EUTE": "European Telecommunications Satellite Organization (EUTELSAT)",
	"FGER": "France/Germany",
	"FIN":  "Finland",
	"FR":   "France",
	"FRIT": "France/Italy",
	"GER":  "Germany",
	"GHA":  "Republic of Ghana",
	"GLOB": "Globalstar",
	"GREC": "Greece",
	"GRSA": "Greece/Saudi Arabia",
	"GUAT": "Guatemala",
	"HUN":  "Hungary",
	"IM":   "International Mobile Satellite Organization (INMARSAT)",
	"IND":  "India",
	"INDO": "Indonesia",
	"IRAN": "Iran",
	"IRAQ": "Iraq",
	"IRID": "Iridium",
	"IRL":  "Ireland",
	"ISRA": "Israel",
	"ISRO": "Indian Space Research Organisation",
	"ISS":  "International Space Station",
	"IT":   "Italy",
	"ITSO": "International Telecommunications Satellite Organization (INTELSAT)",
	"JPN":  "Japan",
	"KAZ":  "Kazakhstan",
	"KEN":  "Republic of Kenya",
	"LAOS": "Laos",
	"LKA":  "Democratic Socialist Republic of Sri Lanka",
	"LTU":  "Lithuania",
	"LUXE": "Luxembourg",
	"MA":   "Morocco",
	"MALA": "Malaysia",
	"MCO":  "Principality of Monaco",
	"MDA":  "Republic of Moldova",
	"MEX":  "Mexico",
	"MMR":  "Republic of the Union of Myanmar",
	"MNG":  "Mongolia",
	"MUS":  "Mauritius",
	"NATO": "North Atlantic Treaty Organization",
	"NETH": "Netherlands",
	"NICO": "New ICO",
	"NIG":  "Nigeria",
	"NKOR": "Democratic People's Republic of Korea",
	"NOR":  "Norway",
	"NPL":  "Federal Democratic Republic of Nepal",
	"NZ":   "New Zealand",
	"O3B":  "O3b Networks",
	"ORB":  "ORBCOMM",
	"PAKI": "Pakistan",
	"PERU": "Peru",
	"POL":  "Poland",
	"POR":  "Portugal",
	"PRC":  "People's Republic of China",
	"PRY":  "Republic of Paraguay",
	"PRES": "People's Republic of China/European Space Agency",
	"QAT":  "State of Qatar",
	"RASC": "RascomStar-QAF",
	"ROC":  "Taiwan (Republic of China)",
	"ROM":  "Romania",
	"RP":   "Philippines (Republic of the Philippines)",
	"RWA":  "Republic of Rwanda",
	"SAFR": "South Africa",
	"SAUD": "Saudi Arabia",
	"SDN":  "Republic of Sudan",
	"SEAL": "Sea Launch",
	"SES":  "SES",
	"SGJP": "Singapore/Japan",
	"SING": "Singapore",
	"SKOR": "Republic of Korea",
	"SPN":  "Spain",
	"STCT": "Singapore/Taiwan",
	"SVN":  "Slovenia",
	"SWED": "Sweden",
	"SWTZ": "Switzerland",
	"TBD":  "To Be Determined",
	"THAI": "Thailand",
	"TMMC": "Turkmenistan/Monaco",
	"TUN":  "Republic of Tunisia",
	"TURK": "Turkey",
	"UAE":  "United Arab Emirates",
	"UK":   "United Kingdom",
	"UKR":  "Ukraine",
	"UNK":  "Unknown",
	"URY":  "Uruguay",
	"US":   "United States",
	"USBZ": "United States/Brazil",
	"VAT":  "Vatican City State",
	"VENZ": "Venezuela",
	"VTNM": "Vietnam",
	"ZWE":  "Republic of Zimbabwe",
}

var launchSites = map[string]string{
	"AFETR": "Air Force Eastern Test Range, Florida, USA",
	"AFWTR": "Air Force Western Test Range, California, USA",
	"CAS":   "Canaries Airspace",
	"DLS":   "Dombarovskiy Launch Site, Russia",
	"ERAS":  "Eastern Range Airspace",
	"FRGUI": "Europe's Spaceport, Kourou, French Guiana",
	"HGSTR": "Hammaguira Space Track Range, Algeria",
	"JJSLA": "Jeju Island Sea Launch Area, Republic of Korea",
	"JSC":   "Jiuquan Space Center, PRC",
	"KODAK": "Kodiak Launch Complex, Alaska, USA",
	"KSCUT": "Uchinoura Space Center (formerly Kagoshima Space Center, University of Tokyo), Japan",
	"KWAJ":  "US Army Kwajalein Atoll (USAKA)",
	"KYMSC": "Kapustin Yar Missile and Space Complex, Russia",
	"NSC":   "Naro Space Complex, Republic of Korea",
	"PLMSC": "Plesetsk Missile and Space Complex, Russia",
	"RLLB":  "Rocket Lab Launch Base, Mahia Peninsula, New Zealand",
	"SCSLA": "South China Sea Launch Area, PRC",
	"SEAL":  "Sea Launch Platform (mobile)",
	"SEMLS": "Semnan Satellite Launch Site, Iran",
	"SMTS":  "Shahrud Missile Test Site, Iran",
	"SNMLP": "San Marco Launch Platform, Indian Ocean (Kenya)",
	"SPKII": "Space Port Kii, Japan",
	"SRILR": "Satish Dhawan Space Centre, India (formerly Sriharikota Launching Range)",
	"SUBL":  "Submarine Launch Platform (mobile)",
	"SVOBO": "Svobodnyy Launch Complex, Russia",
	"TAISC": "Taiyuan Space Center, PRC",
	"TANSC": "Tanegashima Space Center, Japan",
	"TYMSC": "Tyuratam Missile and Space Center, Kazakhstan (Baikonur Cosmodrome)",
	"UNK":   "Unknown",
	"VOSTO": "Vostochny Cosmodrome, Russia",
	"WLPIS": "Wallops Island, Virginia, USA",
	"WOMRA": "Woomera, Australia",
	"WRAS":  "Western Range Airspace",
	"WSC":   "Wenchang Satellite Launch Site, PRC",
	"XICLF": "Xichang Launch Facility, PRC",
	"YAVNE": "Yavne Launch Facility, Israel",
	"YSLA":  "Yellow Sea Launch Area, PRC",
	"YUN":   "Yunsong Launch Site (Sohae Satellite Launching Station), DPRK",
}
