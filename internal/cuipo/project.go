package cuipo

// Project holds the registry attributes of an investment project.
type Project struct {
	BPIN           string
	NombreProyecto string
}

// ResolveProject looks a project code up in the registry (key p, values
// distrito_m1 and nombre_proyecto).
func ResolveProject(proyecto string, ref *Lookup) Project {
	return Project{
		BPIN:           ref.GetOr(proyecto, 0, ""),
		NombreProyecto: ref.GetOr(proyecto, 1, ""),
	}
}
