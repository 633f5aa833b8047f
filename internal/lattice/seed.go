package lattice

// chunkSeed смешивает сид мира с координатами чанка. Используется только в
// режиме PerChunkSeed: каждый чанк получает собственный детерминированный поток.
func chunkSeed(seed int64, chunkX, chunkZ int) int64 {
	// Координаты подмешиваются по очереди: зеркальные (x, z) и (-x, -z)
	// не должны давать одинаковый сид
	h := mix64(uint64(seed))
	h = mix64(h ^ uint64(int64(chunkX)))
	h = mix64(h ^ uint64(int64(chunkZ)))
	return int64(h)
}

// mix64 — финализатор splitmix64
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
