package vanilla

import "github.com/annel0/skygrid/internal/host"

var overworldMonsters = []host.SpawnEntry{
	{Entity: "spider", Weight: 100, MinGroup: 4, MaxGroup: 4},
	{Entity: "zombie", Weight: 100, MinGroup: 4, MaxGroup: 4},
	{Entity: "skeleton", Weight: 100, MinGroup: 4, MaxGroup: 4},
	{Entity: "creeper", Weight: 100, MinGroup: 4, MaxGroup: 4},
	{Entity: "slime", Weight: 100, MinGroup: 4, MaxGroup: 4},
	{Entity: "enderman", Weight: 10, MinGroup: 1, MaxGroup: 4},
}

var overworldCreatures = []host.SpawnEntry{
	{Entity: "sheep", Weight: 12, MinGroup: 4, MaxGroup: 4},
	{Entity: "pig", Weight: 10, MinGroup: 4, MaxGroup: 4},
	{Entity: "chicken", Weight: 10, MinGroup: 4, MaxGroup: 4},
	{Entity: "cow", Weight: 8, MinGroup: 4, MaxGroup: 4},
}

// spawnTables — таблицы спавна по имени биома и категории существ
var spawnTables = map[string]map[host.CreatureType][]host.SpawnEntry{
	Hell.Name: {
		host.CreatureMonster: {
			{Entity: "ghast", Weight: 50, MinGroup: 4, MaxGroup: 4},
			{Entity: "zombie_pigman", Weight: 100, MinGroup: 4, MaxGroup: 4},
			{Entity: "magma_cube", Weight: 1, MinGroup: 4, MaxGroup: 4},
		},
	},
	Sky.Name: {
		host.CreatureMonster: {
			{Entity: "enderman", Weight: 10, MinGroup: 4, MaxGroup: 4},
		},
	},
	Ocean.Name: {
		host.CreatureMonster: overworldMonsters,
		host.CreatureWater: {
			{Entity: "squid", Weight: 10, MinGroup: 4, MaxGroup: 4},
		},
	},
	Desert.Name: {
		host.CreatureMonster: overworldMonsters,
	},
	Jungle.Name: {
		host.CreatureMonster: overworldMonsters,
		host.CreatureCreature: append(append([]host.SpawnEntry(nil), overworldCreatures...),
			host.SpawnEntry{Entity: "ocelot", Weight: 2, MinGroup: 1, MaxGroup: 1}),
	},
}

var defaultTable = map[host.CreatureType][]host.SpawnEntry{
	host.CreatureMonster:  overworldMonsters,
	host.CreatureCreature: overworldCreatures,
	host.CreatureAmbient: {
		{Entity: "bat", Weight: 10, MinGroup: 8, MaxGroup: 8},
	},
	host.CreatureWater: {
		{Entity: "squid", Weight: 10, MinGroup: 4, MaxGroup: 4},
	},
}

func spawnList(biome host.Biome, creature host.CreatureType) []host.SpawnEntry {
	table, ok := spawnTables[biome.Name]
	if !ok {
		table = defaultTable
	}
	return append([]host.SpawnEntry(nil), table[creature]...)
}
