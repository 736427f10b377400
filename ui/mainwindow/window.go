// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"mathsketch/internal/acquire"
	"mathsketch/internal/app"
	sketchimage "mathsketch/internal/image"
	"mathsketch/internal/submit"
	"mathsketch/internal/surface"
	"mathsketch/internal/version"
	"mathsketch/ui/canvas"
	"mathsketch/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"
)

const appTitle = "Math Sketch"

// cropPreviewSize is the initial size of the crop dialog's photo area.
var cropPreviewSize = fyne.NewSize(480, 360)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs

	surface   *canvas.SurfaceCanvas
	crop      *canvas.CropCanvas // set while the crop dialog is open
	result    *widget.Label
	statusBar *widget.Label
	calcBtn   *widget.Button
	eraserBtn *widget.Button
	colorBtns map[string]*widget.Button
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window:    win,
		app:       fyneApp,
		state:     state,
		prefs:     p,
		colorBtns: make(map[string]*widget.Button),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.restorePreferences()

	win.SetOnClosed(mw.SavePreferences)
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.surface = canvas.NewSurfaceCanvas(mw.state.Surface)

	mw.result = widget.NewLabel("")
	mw.result.Wrapping = fyne.TextWrapWord
	mw.result.TextStyle = fyne.TextStyle{Monospace: true}

	mw.statusBar = widget.NewLabel("Looking for relay...")

	resultBox := container.NewBorder(nil, nil, widget.NewLabel("Result:"), nil, mw.result)

	content := container.NewBorder(
		mw.createToolbar(),
		container.NewVBox(resultBox, container.NewPadded(mw.statusBar)),
		nil,
		nil,
		container.NewPadded(mw.surface.Container()),
	)
	mw.SetContent(content)
}

// createToolbar creates the pen, clear, upload and calculate controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	items := []fyne.CanvasObject{widget.NewLabel("Pen:")}
	for _, nc := range surface.Palette() {
		btn := widget.NewButton(nc.Name, func() { mw.selectColor(nc.Name) })
		mw.colorBtns[nc.Name] = btn
		items = append(items, btn)
	}

	mw.eraserBtn = widget.NewButton("eraser", mw.selectEraser)
	clearBtn := widget.NewButton("Clear", mw.onClear)
	uploadBtn := widget.NewButton("Upload...", mw.onUpload)
	mw.calcBtn = widget.NewButton("Calculate", mw.onCalculate)
	mw.calcBtn.Importance = widget.HighImportance

	items = append(items, mw.eraserBtn, widget.NewSeparator(), clearBtn, uploadBtn, mw.calcBtn)
	return container.NewHBox(items...)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Upload Photo...", mw.onUpload),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Clear", mw.onClear),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)
	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, helpMenu))
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventSurfaceChanged, func(interface{}) {
		mw.surface.Refresh()
	})

	mw.state.On(app.EventCropChanged, func(interface{}) {
		if mw.crop != nil {
			mw.crop.Refresh()
		}
	})

	mw.state.On(app.EventSubmissionChanged, func(data interface{}) {
		if st, ok := data.(submit.State); ok {
			mw.showSubmission(st)
		}
	})

	mw.state.On(app.EventRelayChanged, func(data interface{}) {
		if url, ok := data.(string); ok {
			mw.updateStatus("Relay: " + url)
		}
	})

	mw.state.On(app.EventError, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.updateStatus("Error: " + err.Error())
		}
	})
}

// showSubmission renders the submission state in the result area.
func (mw *MainWindow) showSubmission(st submit.State) {
	switch st.Phase {
	case submit.PhaseIdle:
		mw.result.SetText("")
		mw.calcBtn.Enable()
	case submit.PhasePending:
		mw.result.SetText("Calculating...")
		mw.calcBtn.Disable()
	case submit.PhaseSucceeded:
		mw.result.SetText(st.Text)
		mw.calcBtn.Enable()
	case submit.PhaseFailed:
		mw.result.SetText("Error: " + st.Reason)
		mw.calcBtn.Enable()
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) selectColor(name string) {
	mw.state.Surface.SetColor(surface.ColorByName(name))
	mw.prefs.SetString(prefs.KeyColor, name)
	mw.prefs.SetBool(prefs.KeyEraser, false)
	mw.highlight(name)
}

func (mw *MainWindow) selectEraser() {
	mw.state.Surface.SetEraser()
	mw.prefs.SetBool(prefs.KeyEraser, true)
	mw.highlight("")
}

// highlight marks the active pen button; an empty name marks the eraser.
func (mw *MainWindow) highlight(name string) {
	for n, btn := range mw.colorBtns {
		if n == name {
			btn.Importance = widget.HighImportance
		} else {
			btn.Importance = widget.MediumImportance
		}
		btn.Refresh()
	}
	if name == "" {
		mw.eraserBtn.Importance = widget.HighImportance
	} else {
		mw.eraserBtn.Importance = widget.MediumImportance
	}
	mw.eraserBtn.Refresh()
}

func (mw *MainWindow) onClear() {
	mw.state.Clear()
	mw.updateStatus("Cleared")
}

func (mw *MainWindow) onCalculate() {
	if _, err := mw.state.Calculate(context.Background()); err != nil {
		if errors.Is(err, submit.ErrBusy) {
			mw.updateStatus("Still calculating the previous drawing")
			return
		}
		if errors.Is(err, acquire.ErrCropPending) {
			mw.updateStatus("Finish cropping the uploaded photo first")
			return
		}
		mw.updateStatus("Error: " + err.Error())
	}
}

func (mw *MainWindow) onUpload() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		defer reader.Close()

		path := reader.URI().Path()
		mw.saveLastDir(path)

		preview := canvas.PreviewSize(cropPreviewSize, mw.state.Cropper.Aspect())
		if err := mw.state.OpenUpload(reader, filepath.Base(path), preview); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.showCropDialog()
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(append(sketchimage.SupportedFormats(), ".heic", ".heif")))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// showCropDialog lets the user frame the uploaded photo, then submits the
// crop or returns to drawing.
func (mw *MainWindow) showCropDialog() {
	cc := canvas.NewCropCanvas(mw.state.Cropper, cropPreviewSize)
	mw.crop = cc

	zoomOut := widget.NewButton("-", func() { mw.state.Cropper.ZoomOut(); cc.Refresh() })
	zoomIn := widget.NewButton("+", func() { mw.state.Cropper.ZoomIn(); cc.Refresh() })
	controls := container.NewHBox(widget.NewLabel("Zoom:"), zoomOut, zoomIn,
		widget.NewLabel("Drag to move the photo under the frame"))

	body := container.NewBorder(nil, controls, nil, nil, cc.Container())

	d := dialog.NewCustomConfirm("Crop "+mw.state.Selector.UploadName(), "Calculate", "Cancel", body, func(ok bool) {
		mw.crop = nil
		if !ok {
			mw.state.CancelCrop()
			mw.updateStatus("Upload cancelled")
			return
		}
		if _, err := mw.state.CommitCrop(context.Background()); err != nil {
			log.Err(err).Msg("crop submission")
			mw.updateStatus("Error: " + err.Error())
			// The photo is still in the cropper; let the user retry or cancel.
			mw.showCropDialog()
		}
	}, mw.Window)
	d.Resize(fyne.NewSize(cropPreviewSize.Width+40, cropPreviewSize.Height+140))
	d.Show()
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

func (mw *MainWindow) restorePreferences() {
	w := mw.prefs.FloatWithFallback(prefs.KeyWindowWidth, 1100)
	h := mw.prefs.FloatWithFallback(prefs.KeyWindowHeight, 620)
	mw.Resize(fyne.NewSize(float32(w), float32(h)))

	eraser := mw.prefs.Bool(prefs.KeyEraser, false)
	mw.selectColor(mw.prefs.StringWithFallback(prefs.KeyColor, "black"))
	if eraser {
		mw.selectEraser()
	}
}

// SavePreferences writes the window size and pen choice to disk.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	if size.Width > 0 && size.Height > 0 {
		mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
		mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	}
	if err := mw.prefs.Save(); err != nil {
		log.Warn().Err(err).Str("path", mw.prefs.Path()).Msg("save preferences")
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"Draw or photograph an expression and have it read back.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
