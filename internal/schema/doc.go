// Package schema maps free-form spreadsheet headers to semantic fields.
//
// Overview
//
// Neither the roster workbook nor the school workbooks have a fixed layout:
// column titles are typed by hand ("Stagiaire", "Nom de l'élève", "Classe CI",
// "Cours 1 du"...). A single declarative table describes each field as an
// ordered keyword list plus exclusion predicates, and Resolve applies it:
//
//	headers ──► normalize (trim, lowercase)
//	               │
//	               ├─ 1. exact keyword match
//	               ├─ 2. substring match (keyword length > 2)
//	               └─ exclusions skip the column in both passes
//	               ▼
//	            Mapping{field → column index | absent}
//
// Resolution is deterministic: the first column in file order wins, and a
// column claimed by one field is not offered to fields later in the table.
//
// Slots
//
// Slot sheets carry the time window plus a role keyword ("8h30 à 10h
// Professeur"). CleanSlot strips the role words so that sheets for the
// same physical slot compare equal through SameSlot.
package schema
