// Package rng — единственный источник случайности движка.
// Все вероятностные решения (генерация сетки, бонусы, штормы, джекпоты)
// проходят через интерфейс Provider: так у аудита честности и
// статистических тестов есть одна точка контроля.
//
// Продакшен-реализация использует crypto/rand: игрок не должен иметь
// возможности предсказать исход, обычной статистической равномерности
// math/rand здесь недостаточно.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
)

// Provider выдаёт равномерно распределённые числа в заданном диапазоне.
// Обе границы включительны (для Float допустима точечная смещённость
// на верхней границе).
type Provider interface {
	Int(lo, hi int) int
	Float(lo, hi float64) float64
}

// CryptoSource — криптографически стойкая реализация Provider.
type CryptoSource struct{}

// New создаёт криптографический источник случайности.
func New() *CryptoSource {
	return &CryptoSource{}
}

// Int возвращает случайное целое в [lo, hi].
// Паникует при lo > hi — это ошибка конфигурации, а не рантайма.
func (s *CryptoSource) Int(lo, hi int) int {
	if lo > hi {
		panic(fmt.Sprintf("rng: некорректный диапазон [%d, %d]", lo, hi))
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo)+1))
	if err != nil {
		// crypto/rand читает из системного источника энтропии;
		// его отказ — фатальная проблема окружения
		panic(fmt.Sprintf("rng: источник энтропии недоступен: %v", err))
	}
	return lo + int(n.Int64())
}

// Float возвращает случайное число с плавающей точкой в [lo, hi].
func (s *CryptoSource) Float(lo, hi float64) float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(fmt.Sprintf("rng: источник энтропии недоступен: %v", err))
	}
	// 53 старших бита дают равномерный float64 в [0, 1)
	f := float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
	return lo + f*(hi-lo)
}
