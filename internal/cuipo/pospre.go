package cuipo

// ResolvePospre classifies a budget position against the pospre table (key
// pospre, value pospre_cuipo). When the full code is unknown the code without its
// last two characters is tried, provided the trimmed code has at least three.
func ResolvePospre(pospre string, ref *Lookup) string {
	if v, ok := ref.Get(pospre, 0); ok {
		return v
	}
	if Length(Trim(pospre)) < 3 {
		return ""
	}
	short := Trim(Left(pospre, Length(pospre)-2))
	if v, ok := ref.Get(short, 0); ok {
		return v
	}
	return ""
}

// TieneCPC checks pospreCuipo against the pospre_cuipo column of the same table.
// byCuipo is that table indexed by pospre_cuipo with pospre_cuipo as value.
func TieneCPC(pospreCuipo string, byCuipo *Lookup) string {
	return byCuipo.GetOr(pospreCuipo, 0, NoAplica)
}
