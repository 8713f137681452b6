// Package web contiene la pagina principal y los assets estaticos, embebidos en el binario.
package web

import "embed"

//go:embed index.html static
var Assets embed.FS
