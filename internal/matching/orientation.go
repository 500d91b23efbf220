package matching

// acceptedGenders returns the set of genders a user with the given gender and
// orientation is willing to match with. Heterosexual users of non-binary
// gender are treated as preferring women, matching the product's established
// behavior.
func acceptedGenders(gender Gender, orientation Orientation) map[Gender]bool {
	if orientation == "" {
		orientation = OrientationBi
	}

	switch orientation {
	case OrientationHetero:
		if gender == GenderFemale {
			return map[Gender]bool{GenderMale: true}
		}
		return map[Gender]bool{GenderFemale: true}
	case OrientationHomo:
		return map[Gender]bool{gender: true}
	default:
		return map[Gender]bool{GenderMale: true, GenderFemale: true, GenderOther: true}
	}
}

// OrientationReciprocal reports whether two users' stated preferences both
// permit the other. It is re-evaluated from current profile values on every
// visibility check and never cached on Like or Match records, so an
// orientation change removes a pair from future discovery while pre-existing
// matches are preserved.
func OrientationReciprocal(genderA Gender, orientA Orientation, genderB Gender, orientB Orientation) bool {
	return acceptedGenders(genderA, orientA)[genderB] &&
		acceptedGenders(genderB, orientB)[genderA]
}
