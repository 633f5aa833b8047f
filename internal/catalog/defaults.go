package catalog

import (
	"github.com/annel0/skygrid/internal/host"
)

// Порядок, в котором блоки-носители растений дописываются в конец каталога
var carrierRoles = []host.Role{host.RoleFarmland, host.RoleSoulSand, host.RoleSand, host.RoleGrass}

// Synthesize строит каталог по умолчанию из реестра блоков хоста.
//
// Первый проход: полные кубы (и сундук) сразу попадают в каталог; текучие
// жидкости и неполные блоки отбрасываются; носители растений (пашня,
// песок душ, песок, трава) только запоминаются. Второй проход раскладывает
// растения по носителям. Носители дописываются последними, уже со своими
// надстройками.
func Synthesize(blocks host.BlockCatalog) []Entry {
	entries := []Entry{}
	if blocks == nil {
		return entries
	}

	all := blocks.Blocks()
	carriers := make(map[host.Role]*Entry, len(carrierRoles))

	for _, b := range all {
		if isCarrierRole(b.Role) {
			if _, seen := carriers[b.Role]; !seen {
				e := NewEntry(b.ID)
				carriers[b.Role] = &e
			}
			continue
		}
		if b.DynamicFluid || (!b.FullCube && b.Role != host.RoleChest) {
			continue
		}
		entries = append(entries, NewEntry(b.ID))
	}

	for _, b := range all {
		var target host.Role
		switch b.Plant {
		case host.PlantCrop, host.PlantStem:
			target = host.RoleFarmland
		case host.PlantNetherWart:
			target = host.RoleSoulSand
		case host.PlantCactus, host.PlantReed:
			target = host.RoleSand
		case host.PlantPlantable:
			target = host.RoleGrass
		default:
			continue
		}
		if carrier, ok := carriers[target]; ok {
			carrier.AddOverlay(b.ID)
		}
	}

	for _, role := range carrierRoles {
		if carrier, ok := carriers[role]; ok {
			entries = append(entries, *carrier)
		}
	}
	return entries
}

func isCarrierRole(r host.Role) bool {
	for _, role := range carrierRoles {
		if r == role {
			return true
		}
	}
	return false
}
