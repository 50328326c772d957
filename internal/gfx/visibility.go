package gfx

func setVisible[T Visible](items []T, visible bool) {
	for _, it := range items {
		it.SetVisible(visible)
	}
}

// SetRodsVisible shows or hides every rod, hidden rods included.
func (a *Actor) SetRodsVisible(visible bool) {
	setVisible(a.rods, visible)
}

// SetFlexbodiesVisible shows or hides every flexbody mesh.
func (a *Actor) SetFlexbodiesVisible(visible bool) {
	setVisible(a.flexbodies, visible)
}

// SetWheelsVisible shows or hides every wheel.
func (a *Actor) SetWheelsVisible(visible bool) {
	setVisible(a.wheels, visible)
}

// SetPropsVisible shows or hides every prop, dashboard props included.
func (a *Actor) SetPropsVisible(visible bool) {
	setVisible(a.props, visible)
}

// SetFlaresVisible shows or hides every flare. It does not switch the
// lights; UpdateFlares keeps setting their intensity.
func (a *Actor) SetFlaresVisible(visible bool) {
	setVisible(a.flares, visible)
}

// SetWingsVisible shows or hides every wing panel.
func (a *Actor) SetWingsVisible(visible bool) {
	setVisible(a.wings, visible)
}

// SetAeroEnginesVisible shows or hides every turbojet and turboprop visual.
func (a *Actor) SetAeroEnginesVisible(visible bool) {
	setVisible(a.aeroEngines, visible)
}

// SetCabVisible shows or hides the cab. Actors without a cab ignore it.
func (a *Actor) SetCabVisible(visible bool) {
	if a.cab != nil {
		a.cab.SetVisible(visible)
	}
}

// SetAllMeshesVisible shows or hides every mesh of the actor. Flares,
// particles and debug overlays are left alone.
func (a *Actor) SetAllMeshesVisible(visible bool) {
	a.SetRodsVisible(visible)
	a.SetFlexbodiesVisible(visible)
	a.SetWheelsVisible(visible)
	a.SetPropsVisible(visible)
	a.SetWingsVisible(visible)
	a.SetAeroEnginesVisible(visible)
	a.SetCabVisible(visible)
	setVisible(a.airbrakes, visible)
	setVisible(a.screwProps, visible)
}

// SetCastShadows switches shadow casting on every scene node of the actor.
func (a *Actor) SetCastShadows(cast bool) {
	if a.disposed {
		return
	}
	a.castShadows = cast
	for _, e := range a.elements() {
		a.graph.SetMaterialParam(e.node, "cast_shadows", boolf(cast))
	}
}

// CastShadows reports the last SetCastShadows value. New actors cast shadows.
func (a *Actor) CastShadows() bool {
	return a.castShadows
}
