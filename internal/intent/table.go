package intent

// directTable maps record-backed intents to their patterns, in match order.
var directTable = []intentPatterns{
	{"horario", []string{
		`hora`, `horario`, `cual.*mi.*horario`, `que.*horario`, `a que.*hora`, `a que.*h`, `mi.*horario`,
		`horario.*clases`, `mis.*clases.*a.*que.*hora`, `horario.*actual`, `a.*que.*entro`,
		`a.*que.*hora.*salgo`, `rol.*clases`, `rol.*horario`, `a.*que.*toca`, `q.*hora`,
	}},
	{"materias_inscritas", []string{
		`que.*materias.*inscrit`, `materias.*curs`, `mis\s+materias`, `materias.*actual`,
		`cursos.*actual`, `que.*llevo`, `mis.*cursos`, `cuantas.*materias.*tengo`, `que.*voy.*a.*cursar`,
		`cuales.*son.*mis.*unidades.*de.*aprendizaje`, `que.*mats.*llevo`, `mats.*inscritas`, `mis.*ua`,
		`cuales.*son.*mis.*materias`,
	}},
	{"promedio", []string{
		`cual.*promedio`, `^promedio$`, `mi.*calificacion`, `prom.*tengo`, `promedito`,
		`cual.*es.*mi.*prom`, `calif.*general`, `mi.*promedio.*actual`, `nota.*media`, `q.*promedio`,
		`q.*calif`, `mi.*prome`, `mi.*promedios`,
	}},
	{"creditos", []string{
		`cuantos.*creditos`, `^creditos$`, `cuantos.*creditos.*tengo`, `total.*creditos`,
		`mis.*creditos`, `creditos.*totales`, `cuantos.*creditos.*acumulo`, `cuantos.*creditos.*llevo`,
		`cantidad.*creditos`, `creditos.*en.*total`,
	}},
	{"estado", []string{
		`estado.*academico`, `situacion.*academica`, `como.*voy.*escuela`, `mi.*situacion`,
		`como.*esta.*mi.*estado`, `mi.*estatus.*academico`, `estatus.*escolar`, `situacion.*actual`,
		`como.*va.*mi.*carrera`, `mi.*situacion.*escolar`,
	}},
	{"materias_aprobadas", []string{
		`materias.*aprob`, `kardex`, `historial.*academico`, `kardexcito`, `cuantas.*pase`,
		`que.*materias.*pase`, `mi.*historial`, `mi.*kardex`, `materias.*acreditadas`,
		`calificaciones.*finales`, `record.*academico`, `mats.*pasadas`, `mats.*aprobadas.*tengo`,
		`mi.*kardez`, `kardex.*completo`,
	}},
	{"carrera", []string{
		`cual.*carrera`, `en que.*estudio`, `mi.*carrera`, `que.*estoy.*estudiando`,
		`programa.*academico`, `cual.*es.*mi.*programa`, `en.*que.*programa.*estoy`, `q.*carrera`,
		`mi.*licenciatura`, `mi.*ingenieria`, `mi.*carrera.*es`,
	}},
	{"semestre", []string{
		`en que.*semestre`, `^semestre$`, `que.*semestre.*curso`, `semestre.*voy`, `en que.*voy`,
		`mi.*semestre.*actual`, `nivel.*cursando`, `q.*semestre`, `q.*nivel`, `en.*que.*perido.*estoy`,
		`en.*el.*semestre`,
	}},
	{"datos_personales", []string{
		`cual.*boleta`, `mi.*boleta`, `cual.*correo`, `mi.*correo`, `mi.*email`, `cual.*nombre`,
		`mi.*nombre`, `cual.*telefono`, `mi.*telefono`, `cual.*direccion`, `mi.*direccion`, `la.*boleta`,
		`mis.*datos`, `mi.*tel`, `mi.*dir`, `mi.*numero.*de.*boleta`, `datos.*de.*contacto`,
		`domicilio.*registrado`, `num.*boleta`, `mi.*mail`, `mi.*tel\b`, `mi.*dire`,
	}},
	{"inscripcion_info", []string{
		`cuando.*caduca.*inscripcion`, `puedo.*reinscrib`, `reinscripcion.*activa`,
		`hasta cuando.*reinscrib`, `cuando.*vence.*inscripcion`, `hay.*reinscripcion`,
		`hasta.*cuando.*tengo.*reinscribirme`, `cuando.*termina.*mi.*inscripcion`,
		`fecha.*limite.*reinscripcion`, `se.*me.*pasa.*la.*reinscripcion`, `cuando.*es.*la.*reinscrip`,
		`reinscripcion.*vence`, `reinscribirme.*es.*posible`,
	}},
	{"creditos_detalle", []string{
		`creditos.*disponibles`, `creditos.*cursando`, `creditos.*inscritos`, `cuantos.*creditos.*falta`,
		`creditos.*actuales`, `creditos.*maximos.*minimos`, `creditos.*cargados`,
		`creditos.*puedo.*llevar`, `carga.*creditos`,
	}},
	{"programa_info", []string{
		`cuantos.*semestres.*dura`, `duracion.*programa`, `cuantos.*semestres.*quedan`,
		`cuantos.*semestres.*faltan`, `cuanto.*dura.*carrera`, `tiempo.*me.*queda`,
		`cuanto.*tiempo.*tengo.*para.*acabar`, `duracion.*de.*mi.*plan`, `cuanto.*falta.*acabar`,
		`cuantos.*semestres.*son`, `duracion.*total`,
	}},
	{"conteo_materias", []string{
		`cuantas.*materias.*cursando`, `cuantas.*materias.*inscrit`, `cuantas.*materias.*aprob`,
		`cuantas.*materias.*llevo`, `cuantas.*tengo.*inscritas`, `cuantas.*llevo.*pasadas`,
		`numero.*de.*materias.*cursadas`, `total.*de.*materias`, `num.*mats.*llevo`, `conteo.*materias`,
		`cuantas.*mats.*tengo`,
	}},
	{"kardex_info", []string{
		`situacion.*kardex`, `que.*dice.*kardex`, `como.*esta.*kardex`, `mi.*estado.*kardex`,
		`como.*ando.*kardex`, `que.*informacion.*tiene.*mi.*kardex`, `datos.*del.*kardex`,
		`info.*kardex`, `como.*saco.*mi.*kardex`, `ver.*kardex`,
	}},
	{"turno_info", []string{
		`en que.*turno`, `clases.*manana`, `clases.*tarde`, `turno.*soy`, `en.*que.*turno.*me.*toco`,
		`turno.*asignado`, `turno.*de.*estudios`, `es.*matutino.*o.*vespertino`, `mi.*turno`,
		`clases.*en.*la.*tarde`,
	}},
	{"profesores_info", []string{
		`en que.*grupo`, `quienes.*profesores`, `que.*profesores.*tengo`, `quien.*me.*da.*clases`,
		`mis.*profes`, `maestros.*tengo`, `lista.*de.*profesores`, `mis.*docentes`, `quien.*me.*imparte`,
		`q.*profes`, `profesor.*de.*la.*materia`, `quien.*me.*toca`,
	}},
	{"fechas_semestre", []string{
		`cuando.*empieza.*semestre`, `cuando.*termina.*semestre`, `inicio.*semestre`, `fin.*semestre`,
		`fecha.*inicio.*clases`, `cuando.*acaba.*semestre`, `calendario.*escolar`, `periodo.*semestral`,
		`fechas.*del.*ciclo.*escolar`, `cuando.*inicia.*clases`, `fecha.*fin.*semestre`,
		`calendario.*inicio`,
	}},
	{"fechas_parciales", []string{
		`cuando.*parcial`, `fecha.*examen`, `cuando.*examen`, `cuando.*son.*parciales`,
		`fechas.*parcial`, `cuando.*presento.*examenes`, `calendario.*de.*evaluaciones`,
		`fechas.*de.*parciales`, `examen.*de.*primer.*parcial`, `fechas.*de.*evaluacion`,
	}},
	{"fechas_ets", []string{
		`cuando.*ets`, `subir.*documentos`, `evaluacion.*profesores`, `fechas.*ets`,
		`cuando.*aplico.*ets`, `examen.*titulo.*suficiencia`, `fechas.*examen.*a.*titulo`,
		`cuando.*es.*la.*evaluacion.*ets`, `fecha.*limite.*subir.*doc`, `evaluacion.*ets`,
		`cuando.*califican.*ets`,
	}},
	{"profesor_grupos", []string{
		`mis.*grupos`, `grupos.*imparto`, `clases.*que.*doy`, `mis.*clases`, `distribucion.*clases`,
		`horario.*clases`, `materias.*doy`, `que.*grupos.*tengo`, `mis.*grupos.*asignados`,
		`lista.*de.*grupos`, `grupos.*que.*atiendo`, `mi.*carga.*academica`, `mis.*clases.*asignadas`,
	}},
	{"profesor_calificacion", []string{
		`mi.*calificacion`, `calificacion.*tengo`, `promedio.*resenas`, `evaluacion.*desempeno`,
		`cual.*promedio.*profesor`, `calif.*alumno`, `mi.*puntaje.*promedio`, `nota.*general.*profesor`,
		`mi.*promedio.*de.*evaluacion`,
	}},
	{"profesor_resenas", []string{
		`mis.*resenas`, `comentarios.*alumnos`, `que.*dicen.*de.*mi`, `comentarios.*recibi`,
		`resenas.*recientes`, `opiniones.*de.*alumnos`, `comentarios.*sobre.*mi.*clase`,
		`ultimas.*resenas`, `calificaciones.*alumno.*profesor`,
	}},
	{"profesor_fechas", []string{
		`fechas.*importantes`, `calendario`, `subo.*calificaciones`, `fecha.*registro.*calificaciones`,
		`limite.*subir.*calif`, `cuando.*tengo.*que.*entregar.*calificaciones`,
		`fechas.*limite.*registro.*notas`, `cuando.*se.*suben.*calif`, `registro.*notas.*parcial`,
		`fecha.*corte.*calificaciones`,
	}},
}

// complexPatterns route to the generative path. They are checked after every
// direct group.
var complexPatterns = []string{
	`puedo.*inscrib`, `requisito`, `como.*puedo`, `reglamento`, `\bbaja\b`, `titulacion`,
	`extraordinario`, `suficiencia`, `como.*dar.*baja`, `como.*me.*titulo`,
	`que.*necesito.*titularme`, `cuando.*pido.*baja`, `que.*pasa.*si.*repruebo`, `tramite.*de.*baja`,
	`baja.*temporal.*definitiva`, `que.*es.*el.*reglamento`, `que.*hago.*si.*repruebo`,
	`opciones.*de.*titulacion`, `reglamento.*escolar`, `como.*inscribo.*materias`, `reglas.*del.*ipn`,
	`cuantos.*extraordinarios.*puedo`,
}
