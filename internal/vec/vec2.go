package vec

import "fmt"

// Vec2 представляет координаты чанка на плоскости X/Z
type Vec2 struct {
	X, Z int
}

// BlockOrigin возвращает глобальные координаты угла чанка (x*16, z*16)
func (v Vec2) BlockOrigin() Vec2 {
	return Vec2{X: v.X << 4, Z: v.Z << 4} // Умножение на 16
}

// IsOrigin проверяет, является ли чанк стартовым (0,0)
func (v Vec2) IsOrigin() bool {
	return v.X == 0 && v.Z == 0
}

// String возвращает строку вида "x,z"
func (v Vec2) String() string {
	return fmt.Sprintf("%d,%d", v.X, v.Z)
}
