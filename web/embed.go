// Package web вшивает лендинг в бинарь statsapi: один артефакт,
// никакой статики рядом с процессом.
package web

import "embed"

//go:embed static
var Static embed.FS
