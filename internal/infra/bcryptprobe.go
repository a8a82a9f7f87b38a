package infra

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// BcryptProbeBudget — потолок времени одного хеша. Дороже — стоимость
// для этого железа выбрана неудачно и логин будет тормозить.
const BcryptProbeBudget = 500 * time.Millisecond

// ProbeBcryptCost прогоняет один хеш на настроенной стоимости и
// возвращает затраченное время. Диапазон проверяет Validate; здесь
// меряем реальную цену на конкретном железе.
func ProbeBcryptCost(cost int) (time.Duration, error) {
	start := time.Now()
	if _, err := bcrypt.GenerateFromPassword([]byte("phishguard-boot-probe"), cost); err != nil {
		return 0, fmt.Errorf("bcrypt probe at cost %d: %w", cost, err)
	}
	return time.Since(start), nil
}
