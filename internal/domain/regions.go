package domain

import "strings"

// indianRegions lists the states and union territories used for region
// tagging. Longer names come first so "Dadra and Nagar Haveli" wins over a
// bare substring hit.
var indianRegions = []string{
	"Andaman and Nicobar Islands",
	"Dadra and Nagar Haveli",
	"Jammu and Kashmir",
	"Arunachal Pradesh",
	"Himachal Pradesh",
	"Andhra Pradesh",
	"Madhya Pradesh",
	"Uttar Pradesh",
	"Daman and Diu",
	"Chhattisgarh",
	"Lakshadweep",
	"Maharashtra",
	"Uttarakhand",
	"West Bengal",
	"Chandigarh",
	"Puducherry",
	"Tamil Nadu",
	"Jharkhand",
	"Karnataka",
	"Meghalaya",
	"Rajasthan",
	"Telangana",
	"Gujarat",
	"Haryana",
	"Manipur",
	"Mizoram",
	"Nagaland",
	"Tripura",
	"Assam",
	"Bihar",
	"Delhi",
	"Kerala",
	"Ladakh",
	"Odisha",
	"Punjab",
	"Sikkim",
	"Goa",
}

// Regions returns a copy of the known jurisdiction list.
func Regions() []string {
	out := make([]string, len(indianRegions))
	copy(out, indianRegions)
	return out
}

// DetectRegion scans free text for the first known state or union territory
// name. Returns "" when no region is mentioned.
func DetectRegion(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	lowered := strings.ToLower(text)
	for _, region := range indianRegions {
		if strings.Contains(lowered, strings.ToLower(region)) {
			return region
		}
	}
	return ""
}
