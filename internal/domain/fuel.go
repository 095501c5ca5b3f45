package domain

type FuelType string

const (
	FuelEssence  FuelType = "ESSENCE"
	FuelDiesel   FuelType = "DIESEL"
	FuelGPL      FuelType = "GPL"
	FuelKerosene FuelType = "KEROSENE"
)

var FuelTypes = []FuelType{FuelEssence, FuelDiesel, FuelGPL, FuelKerosene}

func (f FuelType) Valid() bool {
	for _, t := range FuelTypes {
		if f == t {
			return true
		}
	}

	return false
}
