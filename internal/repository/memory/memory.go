package memory

import (
	"funds_transfer/internal/repository"
)

var (
	_ repository.AccountRepository = (*AccountRepository)(nil)
)
