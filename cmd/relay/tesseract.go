//go:build tesseract

package main

import _ "mathsketch/internal/recognize/tesseract"
